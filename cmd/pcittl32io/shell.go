// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/chzyer/readline"
)

// shell runs an interactive loop accepting the session commands.
func shell(ctx context.Context, s *session) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.dev.String() + "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("info"),
			readline.PcItem("read"),
			readline.PcItem("write"),
			readline.PcItem("writeall"),
			readline.PcItem("dir"),
			readline.PcItem("watch", readline.PcItem("-timeout")),
			readline.PcItem("help"),
			readline.PcItem("exit"),
		),
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()
	s.w = rl.Stdout()
	for ctx.Err() == nil {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" || args[0] == "quit" {
			return nil
		}
		// Ctrl-C stops the running command, not the shell.
		cmdCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		err = s.run(cmdCtx, args)
		stop()
		if err == errUsage {
			_, _ = io.WriteString(s.w, sessionHelp)
		} else if err != nil {
			fmt.Fprintf(s.w, "error: %v\n", err)
		}
	}
	return nil
}
