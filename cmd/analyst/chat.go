package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ai-data-analyst-be/internal/config"
	"ai-data-analyst-be/internal/pkg/logger"
	"ai-data-analyst-be/pkg/conversation"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func chatCMD() *cobra.Command {
	var logPath string

	var chat = &cobra.Command{
		Use:   "chat <file>",
		Short: "Load a CSV/XLS/XLSX file and chat about it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.Load()
			log := logger.NewIsolatedLogger(logPath)
			defer log.Sync()

			session, err := newSession(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer session.Close()

			if err := upload(ctx, session, args[0]); err != nil {
				return err
			}
			return repl(ctx, session, os.Stdin)
		},
	}
	chat.Flags().StringVar(&logPath, "log", "logs/analyst.log", "log file")
	return chat
}

func upload(ctx context.Context, session *conversation.Session, path string) error {
	data, err := readFile(path)
	if err != nil {
		return err
	}
	res, err := session.Upload(ctx, filepath.Base(path), data)
	if err != nil {
		return err
	}
	color.Cyan("Loaded %d rows from %s", res.RowCount, res.FileName)
	printEntry(res.Welcome)
	return nil
}

func repl(ctx context.Context, session *conversation.Session, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	prompt := color.New(color.FgGreen, color.Bold)

	for {
		prompt.Print("\nyou> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/schema":
			printSchema(session.Schema())
			continue
		case line == "/reset":
			if err := session.Reset(ctx); err != nil {
				color.Red("reset failed: %v", err)
				continue
			}
			color.Yellow("Session cleared. Load a file with /load <path>.")
			continue
		case strings.HasPrefix(line, "/load "):
			if err := upload(ctx, session, strings.TrimSpace(strings.TrimPrefix(line, "/load "))); err != nil {
				color.Red("%v", err)
			}
			continue
		}

		res, err := session.Ask(ctx, line)
		if err != nil {
			color.Red("%v", err)
			continue
		}
		if res.Plan != nil && res.Plan.SQL != "" {
			color.HiBlack("sql: %s", res.Plan.SQL)
		}
		printEntry(res.Entry)
	}
}

func printEntry(e conversation.Entry) {
	label := color.New(color.FgMagenta, color.Bold).Sprint("analyst> ")
	switch c := e.Content.(type) {
	case conversation.VisualizationContent:
		fmt.Println(label + c.Report)
		printVisualization(c)
	default:
		fmt.Println(label + c.Text())
	}
}
