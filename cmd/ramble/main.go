// Command ramble is a local REPL harness for the conversation
// intelligence core (SPEC_FULL.md §3): it opens a session, reads lines
// of text from stdin as utterances, and prints what the Kernel did
// with each one. Standard bufio/os-scanner loop idiom, no dependency
// beyond the Kernel itself and zerolog for startup logging.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ashishact/ramble/internal/store"
	"github.com/ashishact/ramble/pkg/config"
	"github.com/ashishact/ramble/pkg/kernel"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()

	cfg, err := config.Load(".env", "ramble.yaml")
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	k, err := kernel.Open(cfg.DatabasePath, kernel.Options{Config: cfg, Log: log})
	if err != nil {
		log.Fatal().Err(err).Msg("open kernel")
	}
	defer k.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	k.Start(ctx)

	sess, err := k.Session.StartSession(nowMs())
	if err != nil {
		log.Fatal().Err(err).Msg("start session")
	}
	fmt.Printf("session %s started\n", sess.ID)

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("type an utterance and press enter; /lens <id>, /unlens, /topofmind, /quit")
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			continue
		case line == "/quit":
			goto done
		case line == "/unlens":
			k.Lens.Deactivate()
			fmt.Println("lens deactivated")
			continue
		case len(line) > 6 && line[:6] == "/lens ":
			k.Lens.Activate(line[6:])
			fmt.Printf("lens %q activated\n", line[6:])
			continue
		case line == "/topofmind":
			printTopOfMind(k)
			continue
		}

		result, err := k.ProcessText(line, nowMs(), kernel.ProcessTextOptions{
			SessionID: sess.ID,
			Speaker:   store.SpeakerUser,
			Source:    store.SourceText,
		})
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		if result.Captured {
			fmt.Printf("captured by lens %q\n", result.LensID)
			continue
		}
		fmt.Printf("unit %s queued for extraction\n", result.Unit.ID)
		if result.Correction != nil {
			fmt.Println(*result.Correction)
		}
	}

done:
	if _, err := k.Session.EndSession(sess.ID, nowMs()); err != nil {
		log.Error().Err(err).Msg("end session")
	}
}

func printTopOfMind(k *kernel.Kernel) {
	view, err := k.TopOfMind(nowMs())
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println("--- top of mind ---")
	for _, c := range view.Topics {
		fmt.Printf("topic: %s (salience %.2f)\n", c.Statement, c.Salience)
	}
	for _, e := range view.Entities {
		fmt.Printf("entity: %s\n", e.CanonicalName)
	}
	for _, g := range view.Goals {
		fmt.Printf("goal: %s (%.0f%%)\n", g.Statement, g.ProgressValue)
	}
	for _, c := range view.Concerns {
		fmt.Printf("concern: %s\n", c.Statement)
	}
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}
