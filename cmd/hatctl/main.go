package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/highspring-tester/hat/internal/cache"
	"github.com/highspring-tester/hat/internal/config"
	"github.com/highspring-tester/hat/internal/models"
	"github.com/highspring-tester/hat/internal/repositories"
	"github.com/highspring-tester/hat/internal/services"
	"github.com/highspring-tester/hat/pkg"
)

const usage = `hatctl - HAT assessment operator tool

Usage:
  hatctl migrate
  hatctl user add <scope> <role> <username> <email> <name> <password>
  hatctl bank stats <bank>
  hatctl bank preview <bank>
  hatctl results [program]
  hatctl notify retry
  hatctl cache flush`

var errUsage = errors.New("invalid arguments")

type command struct {
	name string
	args []string
}

// parseCommand validates the argument shape before anything connects to a store.
func parseCommand(args []string) (command, error) {
	if len(args) == 0 {
		return command{}, errUsage
	}

	switch args[0] {
	case "migrate":
		if len(args) == 1 {
			return command{name: "migrate"}, nil
		}
	case "user":
		if len(args) == 8 && args[1] == "add" {
			return command{name: "user add", args: args[2:]}, nil
		}
	case "bank":
		if len(args) >= 3 && (args[1] == "stats" || args[1] == "preview") {
			return command{name: "bank " + args[1], args: []string{strings.Join(args[2:], " ")}}, nil
		}
	case "results":
		if len(args) <= 2 {
			return command{name: "results", args: args[1:]}, nil
		}
	case "notify":
		if len(args) == 2 && args[1] == "retry" {
			return command{name: "notify retry"}, nil
		}
	case "cache":
		if len(args) == 2 && args[1] == "flush" {
			return command{name: "cache flush"}, nil
		}
	}
	return command{}, errUsage
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cmd, err := parseCommand(args)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	store, err := pkg.OpenStore(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	if cmd.name == "migrate" {
		color.Green("Schema for %s store is up to date.", cfg.StoreDriver)
		return nil
	}
	if cmd.name == "cache flush" {
		if !store.Cache.Enabled() {
			color.Yellow("REDIS_URL not set or unreachable, nothing to flush.")
			return nil
		}
		cache.InvalidateAllBanks(ctx, store.Cache)
		color.Green("Bank caches flushed.")
		return nil
	}

	sm, err := pkg.NewServiceManager(ctx, cfg, store, logger)
	if err != nil {
		return err
	}
	defer sm.Shutdown(context.Background())

	return execute(ctx, cmd, sm, os.Stdout)
}

func execute(ctx context.Context, cmd command, sm services.ServiceManager, out io.Writer) error {
	switch cmd.name {
	case "user add":
		a := cmd.args
		user, err := sm.Auth().CreateUser(ctx, &services.CreateUserRequest{
			Scope:    models.Scope(a[0]),
			Role:     models.UserRole(a[1]),
			Username: a[2],
			Email:    a[3],
			Name:     a[4],
			Password: a[5],
		})
		if err != nil {
			return err
		}
		color.Green("Created %s %s %q (id %d).", user.Scope, user.Role, user.Username, user.ID)

	case "bank stats":
		stats, err := sm.QuestionBank().Stats(ctx, cmd.args[0])
		if err != nil {
			return err
		}
		color.Cyan("\nQuestion bank %q", stats.Bank)
		renderStats(out, stats)

	case "bank preview":
		questions, err := sm.Assembler().Assemble(ctx, cmd.args[0])
		if err != nil {
			return err
		}
		color.Cyan("\nSample exam for %q (%d questions)", cmd.args[0], len(questions))
		renderPreview(out, questions)

	case "results":
		filters := repositories.CandidateFilters{}
		if len(cmd.args) == 1 {
			filters.Program = cmd.args[0]
		}
		list, err := sm.Enrollment().ListResults(ctx, filters)
		if err != nil {
			return err
		}
		color.Cyan("\nCandidates: %d", list.Total)
		renderResults(out, list.Candidates)

	case "notify retry":
		delivered, err := sm.Notifier().RetryPending(ctx)
		if err != nil {
			return err
		}
		color.Green("Delivered %d queued result mail(s).", delivered)

	default:
		return errUsage
	}
	return nil
}

func renderStats(w io.Writer, stats *models.BankStats) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Easy", "Moderate", "Hard", "Total", "Exam Length"})
	table.Append([]string{
		strconv.Itoa(stats.Easy),
		strconv.Itoa(stats.Moderate),
		strconv.Itoa(stats.Hard),
		strconv.Itoa(stats.Total),
		strconv.Itoa(stats.ExamLength),
	})
	table.Render()
}

func renderPreview(w io.Writer, questions []services.ExamQuestion) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "ID", "Tier", "Time", "Question"})
	table.SetAutoWrapText(false)
	for i, q := range questions {
		table.Append([]string{
			strconv.Itoa(i + 1),
			q.ID,
			string(q.Type),
			strconv.Itoa(q.Time),
			truncate(q.Question, 60),
		})
	}
	table.Render()
}

func renderResults(w io.Writer, candidates []*models.Candidate) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Email", "Bank", "Status", "Result", "Score", "Completed"})
	for _, c := range candidates {
		completed := "-"
		if c.CompletedAt != nil {
			completed = c.CompletedAt.Format("2006-01-02 15:04")
		}
		table.Append([]string{
			c.Email,
			services.BankName(c.Program, c.Project),
			c.Status,
			c.Result,
			c.Score,
			completed,
		})
	}
	table.Render()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
