package repositories

import "strconv"

// SequenceSeed is the value a bank counter starts from when it is first used: the
// largest numeric suffix among the bank's question ids, or their count if larger.
// Seeding from the count alone would reissue ids after deletions.
func SequenceSeed(questionIDs []string) int64 {
	seed := int64(len(questionIDs))
	for _, id := range questionIDs {
		end := len(id)
		start := end
		for start > 0 && id[start-1] >= '0' && id[start-1] <= '9' {
			start--
		}
		if start == end {
			continue
		}
		n, err := strconv.ParseInt(id[start:end], 10, 64)
		if err != nil {
			continue
		}
		seed = max(seed, n)
	}
	return seed
}
