/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package config holds the serializable options consumed by the logger
// package: standard output behaviour and on-disk log file destinations.
package config

import (
	"fmt"
	"os"

	libval "github.com/go-playground/validator/v10"
)

// OptionsStd configures the stdout/stderr hook.
type OptionsStd struct {
	// DisableStandard disables writing to stdout/stderr entirely.
	DisableStandard bool `json:"disableStandard,omitempty" yaml:"disableStandard,omitempty" toml:"disableStandard,omitempty" mapstructure:"disableStandard,omitempty"`

	// DisableColor forces plain (non-ANSI) output even on a tty.
	DisableColor bool `json:"disableColor,omitempty" yaml:"disableColor,omitempty" toml:"disableColor,omitempty" mapstructure:"disableColor,omitempty"`

	// DisableStack drops the goroutine-id field from each entry.
	DisableStack bool `json:"disableStack,omitempty" yaml:"disableStack,omitempty" toml:"disableStack,omitempty" mapstructure:"disableStack,omitempty"`

	// DisableTimestamp drops the timestamp field from each entry.
	DisableTimestamp bool `json:"disableTimestamp,omitempty" yaml:"disableTimestamp,omitempty" toml:"disableTimestamp,omitempty" mapstructure:"disableTimestamp,omitempty"`

	// EnableTrace adds caller/file/line fields to each entry.
	EnableTrace bool `json:"enableTrace,omitempty" yaml:"enableTrace,omitempty" toml:"enableTrace,omitempty" mapstructure:"enableTrace,omitempty"`

	// EnableAccessLog switches the hook to message-only mode, used for
	// request access logging.
	EnableAccessLog bool `json:"enableAccessLog,omitempty" yaml:"enableAccessLog,omitempty" toml:"enableAccessLog,omitempty" mapstructure:"enableAccessLog,omitempty"`
}

func (o *OptionsStd) Clone() *OptionsStd {
	if o == nil {
		return nil
	}
	c := *o
	return &c
}

func (o *OptionsStd) Merge(n *OptionsStd) {
	if n == nil {
		return
	}
	*o = *n
}

// OptionsFile configures one on-disk log destination.
type OptionsFile struct {
	// LogLevel restricts this destination to the named levels; empty means
	// all levels.
	LogLevel []string `json:"logLevel,omitempty" yaml:"logLevel,omitempty" toml:"logLevel,omitempty" mapstructure:"logLevel,omitempty"`

	// Filepath is the target log file.
	Filepath string `json:"filepath,omitempty" yaml:"filepath,omitempty" toml:"filepath,omitempty" mapstructure:"filepath,omitempty" validate:"required"`

	// Create allows creating the file if it is missing.
	Create bool `json:"create,omitempty" yaml:"create,omitempty" toml:"create,omitempty" mapstructure:"create,omitempty"`

	// CreatePath allows creating the parent directory if missing.
	CreatePath bool `json:"createPath,omitempty" yaml:"createPath,omitempty" toml:"createPath,omitempty" mapstructure:"createPath,omitempty"`

	// FileMode is used when creating the log file.
	FileMode os.FileMode `json:"fileMode,omitempty" yaml:"fileMode,omitempty" toml:"fileMode,omitempty" mapstructure:"fileMode,omitempty"`

	// PathMode is used when creating the parent directory.
	PathMode os.FileMode `json:"pathMode,omitempty" yaml:"pathMode,omitempty" toml:"pathMode,omitempty" mapstructure:"pathMode,omitempty"`

	DisableStack     bool `json:"disableStack,omitempty" yaml:"disableStack,omitempty" toml:"disableStack,omitempty" mapstructure:"disableStack,omitempty"`
	DisableTimestamp bool `json:"disableTimestamp,omitempty" yaml:"disableTimestamp,omitempty" toml:"disableTimestamp,omitempty" mapstructure:"disableTimestamp,omitempty"`
	EnableTrace      bool `json:"enableTrace,omitempty" yaml:"enableTrace,omitempty" toml:"enableTrace,omitempty" mapstructure:"enableTrace,omitempty"`
	EnableAccessLog  bool `json:"enableAccessLog,omitempty" yaml:"enableAccessLog,omitempty" toml:"enableAccessLog,omitempty" mapstructure:"enableAccessLog,omitempty"`
}

func (o OptionsFile) Clone() OptionsFile {
	c := o
	c.LogLevel = append([]string(nil), o.LogLevel...)
	return c
}

type OptionsFiles []OptionsFile

func (o OptionsFiles) Clone() OptionsFiles {
	c := make(OptionsFiles, 0, len(o))
	for _, f := range o {
		c = append(c, f.Clone())
	}
	return c
}

// Options is the full logger configuration: stdout behaviour plus any
// number of file destinations.
type Options struct {
	// InheritDefault merges this configuration onto whatever options the
	// logger already carries, instead of replacing them outright.
	InheritDefault bool `json:"inheritDefault" yaml:"inheritDefault" toml:"inheritDefault" mapstructure:"inheritDefault"`

	Stdout *OptionsStd `json:"stdout,omitempty" yaml:"stdout,omitempty" toml:"stdout,omitempty" mapstructure:"stdout,omitempty"`

	// LogFileExtend appends LogFile to any file destinations already set,
	// instead of replacing them.
	LogFileExtend bool `json:"logFileExtend,omitempty" yaml:"logFileExtend,omitempty" toml:"logFileExtend,omitempty" mapstructure:"logFileExtend,omitempty"`

	LogFile OptionsFiles `json:"logFile,omitempty" yaml:"logFile,omitempty" toml:"logFile,omitempty" mapstructure:"logFile,omitempty" validate:"dive"`
}

func (o *Options) Clone() *Options {
	if o == nil {
		return nil
	}
	return &Options{
		InheritDefault: o.InheritDefault,
		Stdout:         o.Stdout.Clone(),
		LogFileExtend:  o.LogFileExtend,
		LogFile:        o.LogFile.Clone(),
	}
}

// Merge overlays n onto o following the Extend flags: when an Extend flag
// is false, the destination list is replaced; when true, it is appended to.
func (o *Options) Merge(n *Options) {
	if n == nil {
		return
	}

	if n.Stdout != nil {
		o.Stdout = n.Stdout.Clone()
	}

	if n.LogFileExtend {
		o.LogFile = append(o.LogFile.Clone(), n.LogFile.Clone()...)
	} else if len(n.LogFile) > 0 {
		o.LogFile = n.LogFile.Clone()
	}

	o.InheritDefault = n.InheritDefault
	o.LogFileExtend = n.LogFileExtend
}

// Validate checks the struct tags declared on Options and its nested file
// destinations.
func (o *Options) Validate() error {
	if err := libval.New().Struct(o); err != nil {
		if er, ok := err.(*libval.InvalidValidationError); ok {
			return er
		}

		var msg string
		for _, er := range err.(libval.ValidationErrors) {
			msg += fmt.Sprintf("config field '%s' is not validated by constraint '%s'; ", er.Namespace(), er.ActualTag())
		}
		return fmt.Errorf("%s", msg)
	}

	return nil
}
