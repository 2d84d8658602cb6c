// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"periph.io/x/quancom/pcibus"
	"periph.io/x/quancom/pcittl32io"
)

// Config is the content of the configuration file.
//
//	sysfs: /sys/bus/pci/devices
//	device: "0000:03:00.0"
//	name: PCITTL32IO
//	direction: 0x03
//	arm_interrupt: true
//	names:
//	  relay: 0
//	  door: 12
type Config struct {
	// Sysfs is the directory listing the PCI functions.
	Sysfs string `yaml:"sysfs"`
	// Device is the address of the card to use. Empty means the first card
	// found.
	Device string `yaml:"device"`
	// Name prefixes the line names.
	Name string `yaml:"name"`
	// Direction is written to the direction register on startup when set.
	Direction *uint8 `yaml:"direction"`
	// ArmInterrupt enables the card interrupt on startup. Defaults to true.
	ArmInterrupt *bool `yaml:"arm_interrupt"`
	// Names maps user defined names to lines.
	Names map[string]int `yaml:"names"`
}

func defaultConfig() *Config {
	return &Config{Sysfs: pcibus.DefaultRoot, Name: pcittl32io.DefaultOpts.Name}
}

// loadConfig reads the configuration file at path. An empty path returns the
// defaults.
func loadConfig(path string) (*Config, error) {
	c := defaultConfig()
	if path == "" {
		return c, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func (c *Config) validate() error {
	if c.Sysfs == "" {
		c.Sysfs = pcibus.DefaultRoot
	}
	if c.Name == "" {
		c.Name = pcittl32io.DefaultOpts.Name
	}
	for n, l := range c.Names {
		if l < 0 || l >= pcittl32io.NumLines {
			return fmt.Errorf("name %q: invalid line %d", n, l)
		}
	}
	return nil
}

// opts returns the attach options.
func (c *Config) opts() pcittl32io.Opts {
	o := pcittl32io.DefaultOpts
	o.Name = c.Name
	o.Aliases = true
	if c.Direction != nil {
		o.PrimeDirection = true
		o.Direction = *c.Direction
	}
	if c.ArmInterrupt != nil {
		o.NoArmInterrupt = !*c.ArmInterrupt
	}
	return o
}
