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

// Package config declares the validated configuration tree of spec §6, fed
// either from code, a TOML file (via pelletier/go-toml) or a loosely-typed
// map (via go-viper/mapstructure, the path used when a supervisor
// propagates worker settings through the environment). Timeout fields use
// duration.Duration rather than time.Duration so all three encodings
// decode the same duration text.
package config

import (
	"fmt"
	"time"

	libval "github.com/go-playground/validator/v10"

	tlscfg "github.com/nabbar/appserver/certificates"
	"github.com/nabbar/appserver/duration"
	liberr "github.com/nabbar/appserver/errors"
)

// HTTP2 holds the per-setting overrides of spec §4.4.
type HTTP2 struct {
	Enable               bool   `mapstructure:"enable" json:"enable" yaml:"enable" toml:"enable"`
	MaxConcurrentStreams uint32 `mapstructure:"maxConcurrentStreams" json:"maxConcurrentStreams" yaml:"maxConcurrentStreams" toml:"maxConcurrentStreams"`
	InitialWindowSize    uint32 `mapstructure:"initialWindowSize" json:"initialWindowSize" yaml:"initialWindowSize" toml:"initialWindowSize"`
	MaxFrameSize         uint32 `mapstructure:"maxFrameSize" json:"maxFrameSize" yaml:"maxFrameSize" toml:"maxFrameSize"`
	MaxHeaderListSize    uint32 `mapstructure:"maxHeaderListSize" json:"maxHeaderListSize" yaml:"maxHeaderListSize" toml:"maxHeaderListSize"`
	EnableConnectProtocol bool  `mapstructure:"enableConnectProtocol" json:"enableConnectProtocol" yaml:"enableConnectProtocol" toml:"enableConnectProtocol"`
}

// Defaults fills zero-valued fields with the spec §4.4 table defaults.
func (h *HTTP2) Defaults() {
	if h.MaxConcurrentStreams == 0 {
		h.MaxConcurrentStreams = 100
	}
	if h.InitialWindowSize == 0 {
		h.InitialWindowSize = 65535
	}
	if h.MaxFrameSize == 0 {
		h.MaxFrameSize = 16384
	}
	if h.MaxHeaderListSize == 0 {
		h.MaxHeaderListSize = 65536
	}
}

// Config is the per-server configuration of spec §6.
type Config struct {
	Name string `mapstructure:"name" json:"name" yaml:"name" toml:"name"`

	Host       string `mapstructure:"host" json:"host" yaml:"host" toml:"host"`
	Port       int    `mapstructure:"port" json:"port" yaml:"port" toml:"port" validate:"omitempty,min=1,max=65535"`
	UnixSocket string `mapstructure:"unixSocket" json:"unixSocket" yaml:"unixSocket" toml:"unixSocket"`

	Workers int `mapstructure:"workers" json:"workers" yaml:"workers" toml:"workers" validate:"min=0"`

	TLS *tlscfg.Config `mapstructure:"ssl" json:"ssl" yaml:"ssl" toml:"ssl"`

	HTTP2 HTTP2 `mapstructure:"http2" json:"http2" yaml:"http2" toml:"http2"`

	// Timeouts accept the teacher's plain duration strings ("30s") as well
	// as the days notation duration.Duration adds ("1d12h") across every
	// encoding this struct is fed through: TOML, mapstructure, JSON, YAML.
	RequestTimeout   duration.Duration `mapstructure:"requestTimeout" json:"requestTimeout" yaml:"requestTimeout" toml:"requestTimeout"`
	ShutdownTimeout  duration.Duration `mapstructure:"shutdownTimeout" json:"shutdownTimeout" yaml:"shutdownTimeout" toml:"shutdownTimeout"`
	HeartbeatTimeout duration.Duration `mapstructure:"heartbeatTimeout" json:"heartbeatTimeout" yaml:"heartbeatTimeout" toml:"heartbeatTimeout"`
	IdleTimeout      duration.Duration `mapstructure:"idleTimeout" json:"idleTimeout" yaml:"idleTimeout" toml:"idleTimeout"`

	MaxBodySize  int64 `mapstructure:"maxBodySize" json:"maxBodySize" yaml:"maxBodySize" toml:"maxBodySize" validate:"min=0"`
	MaxChunkSize int64 `mapstructure:"maxChunkSize" json:"maxChunkSize" yaml:"maxChunkSize" toml:"maxChunkSize" validate:"min=0"`

	Lifespan bool `mapstructure:"lifespan" json:"lifespan" yaml:"lifespan" toml:"lifespan"`

	// ProxyProtocol enables PROXY-protocol v1/v2 unwrap ahead of the
	// Connection Manager; an ambient transport concern, default off.
	ProxyProtocol bool `mapstructure:"proxyProtocol" json:"proxyProtocol" yaml:"proxyProtocol" toml:"proxyProtocol"`
}

// Defaults fills every zero-valued timeout/size with a safe production
// default, the way the teacher's optServer.initServer falls back to
// 30s ReadHeaderTimeout when unset.
func (c *Config) Defaults() {
	if c.RequestTimeout == 0 {
		c.RequestTimeout = duration.ParseDuration(30 * time.Second)
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = duration.ParseDuration(10 * time.Second)
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = duration.ParseDuration(120 * time.Second)
	}
	if c.MaxBodySize == 0 {
		c.MaxBodySize = 10 << 20 // 10 MiB
	}
	if c.MaxChunkSize == 0 {
		c.MaxChunkSize = 1 << 20 // 1 MiB
	}
	c.HTTP2.Defaults()
}

// Validate enforces the mutual-exclusivity and structural rules of spec
// §4.1/§6: host/port and unix_socket are mutually exclusive.
func (c *Config) Validate() liberr.Error {
	err := ErrorValidatorError.Error(nil)

	if c.Host != "" || c.Port != 0 {
		if c.UnixSocket != "" {
			err.Add(fmt.Errorf("config: host/port and unixSocket are mutually exclusive"))
		}
	} else if c.UnixSocket == "" {
		err.Add(fmt.Errorf("config: one of host:port or unixSocket is required"))
	}

	if er := libval.New().Struct(c); er != nil {
		if e, ok := er.(*libval.InvalidValidationError); ok {
			err.Add(e)
		} else if ve, ok := er.(libval.ValidationErrors); ok {
			for _, e := range ve {
				err.Add(fmt.Errorf("config field '%s' failed constraint '%s'", e.StructNamespace(), e.ActualTag()))
			}
		}
	}

	if c.TLS != nil {
		if e := c.TLS.Validate(); e != nil {
			err.Add(e)
		}
	}

	if err.HasParent() {
		return err
	}

	return nil
}

// Merge applies non-listener-affecting fields from n onto c in place and
// reports whether the listener itself (bind address or TLS material) would
// need a restart to pick up the change (supplemented feature, teacher
// httpserver.Server.Merge).
func (c *Config) Merge(n *Config) (restartRequired bool) {
	if c.Host != n.Host || c.Port != n.Port || c.UnixSocket != n.UnixSocket {
		restartRequired = true
	}
	if (c.TLS == nil) != (n.TLS == nil) {
		restartRequired = true
	}

	c.RequestTimeout = n.RequestTimeout
	c.ShutdownTimeout = n.ShutdownTimeout
	c.HeartbeatTimeout = n.HeartbeatTimeout
	c.IdleTimeout = n.IdleTimeout
	c.MaxBodySize = n.MaxBodySize
	c.MaxChunkSize = n.MaxChunkSize
	c.HTTP2 = n.HTTP2
	c.Lifespan = n.Lifespan
	c.ProxyProtocol = n.ProxyProtocol

	if !restartRequired {
		c.Host, c.Port, c.UnixSocket = n.Host, n.Port, n.UnixSocket
		c.TLS = n.TLS
	}

	return restartRequired
}
