// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// pcittl32io controls a Quancom PCITTL32IO card.
//
// Usage:
//
//	pcittl32io [flags] <command> [args]
//
// Commands:
//
//	list                       list the cards on the PCI bus
//	info                       show the directions and the levels
//	read [line]                read one line or all of them
//	write <line> <0|1>         drive a line
//	writeall <mask> <bits>     drive the lines selected by mask
//	dir <line> [in|out [0|1]]  show or set the direction of a line's group
//	watch [-timeout d]         print the edges and the hotplug events
//	shell                      interactive mode
//	smoketest [-out n -in m]   loopback test, lines out and in wired together
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	prefixed "github.com/BertoldVdb/logrus-prefixed-formatter"
	"github.com/sirupsen/logrus"
	"periph.io/x/quancom"
	"periph.io/x/quancom/pcibus"
	"periph.io/x/quancom/pcittl32io"
	"periph.io/x/quancom/pcittl32io/pcittl32iosmoketest"
	"periph.io/x/quancom/uio"
)

// newLogger returns the root log entry, formatted for a terminal.
func newLogger(level logrus.Level, w io.Writer) *logrus.Entry {
	logrus.ErrorKey = "$error"
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(level)
	customFormatter := new(prefixed.TextFormatter)
	customFormatter.TimestampFormat = "2006-01-02 15:04:05"
	customFormatter.FullTimestamp = true
	logger.SetFormatter(customFormatter)
	return logrus.NewEntry(logger)
}

// open attaches the card selected by c and wires its interrupt when
// available.
func open(c *Config) (*pcittl32io.Dev, error) {
	var pd *pcibus.Device
	if c.Device != "" {
		d, err := pcibus.Open(c.Sysfs, c.Device)
		if err != nil {
			return nil, err
		}
		pd = d
	} else {
		all, err := pcibus.Find(c.Sysfs, pcittl32io.ID)
		if err != nil {
			return nil, err
		}
		if len(all) == 0 {
			return nil, errors.New("no card found")
		}
		pd = all[0]
	}
	if err := pd.Enable(); err != nil {
		pcittl32io.Logger.WithError(err).Debug("enable failed")
	}
	opts := c.opts()
	dev, err := pcittl32io.Attach(pd, &opts)
	if err != nil {
		return nil, err
	}
	for n, l := range c.Names {
		if err := dev.RegisterAlias(n, l); err != nil {
			_ = dev.Detach()
			return nil, err
		}
	}
	if path, err := pd.UIO(); err == nil {
		src, err := uio.Open(path)
		if err != nil {
			pcittl32io.Logger.WithError(err).Warn("interrupt unavailable")
		} else if err := dev.ServeInterrupts(src); err != nil {
			_ = src.Close()
		}
	}
	return dev, nil
}

func smoketest(args []string) error {
	if _, err := quancom.Init(); err != nil {
		return err
	}
	s := &pcittl32iosmoketest.SmokeTest{}
	f := flag.NewFlagSet(s.Name(), flag.ContinueOnError)
	err := s.Run(f, args)
	for _, d := range pcittl32io.All() {
		_ = d.Detach()
	}
	return err
}

func mainImpl() error {
	configPath := flag.String("config", "", "YAML configuration file")
	loglevel := flag.Int("loglevel", int(logrus.InfoLevel), "The loglevel to use. Valid values are from 0 to 6. Higher values output more information")
	sysfs := flag.String("sysfs", "", "directory listing the PCI functions, defaults to "+pcibus.DefaultRoot)
	device := flag.String("device", "", "address of the card, e.g. 0000:03:00.0; defaults to the first card found")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: pcittl32io [flags] <command> [args]\n\n")
		fmt.Fprint(flag.CommandLine.Output(), sessionHelp)
		fmt.Fprintf(flag.CommandLine.Output(), "  list, shell, smoketest [-out n -in m]\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		return errUsage
	}
	log := newLogger(logrus.Level(*loglevel), os.Stderr)
	pcittl32io.Logger = log.WithField("prefix", "pcittl32io")

	c, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *sysfs != "" {
		c.Sysfs = *sysfs
	}
	if *device != "" {
		c.Device = *device
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	args := flag.Args()
	switch args[0] {
	case "list":
		return list(os.Stdout, c.Sysfs)
	case "smoketest":
		return smoketest(args[1:])
	}
	dev, err := open(c)
	if err != nil {
		return err
	}
	defer dev.Detach()
	log.WithField("prefix", "main").Debugf("using %s at %s", dev, dev.Addr())
	s := &session{dev: dev, w: os.Stdout, watch: pcibus.Watch}
	if args[0] == "shell" {
		// The shell handles Ctrl-C itself.
		stop()
		return shell(context.Background(), s)
	}
	return s.run(ctx, args)
}

func main() {
	if err := mainImpl(); err != nil {
		if err != errUsage {
			fmt.Fprintf(os.Stderr, "pcittl32io: %s.\n", err)
		}
		os.Exit(1)
	}
}
