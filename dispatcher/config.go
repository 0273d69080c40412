//     Copyright (C) 2025, mashb1t
//
//     This file is part of dns-txt-ollama-server.
//
//     dns-txt-ollama-server is free software: you can redistribute it and/or modify
//     it under the terms of the GNU General Public License as published by
//     the Free Software Foundation, either version 3 of the License, or
//     (at your option) any later version.
//
//     dns-txt-ollama-server is distributed in the hope that it will be useful,
//     but WITHOUT ANY WARRANTY; without even the implied warranty of
//     MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
//     GNU General Public License for more details.
//
//     You should have received a copy of the GNU General Public License
//     along with this program.  If not, see <https://www.gnu.org/licenses/>.

package dispatcher

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is config
type Config struct {
	Bind struct {
		Addr     string `yaml:"addr"`
		Protocol string `yaml:"protocol"` // all | udp | tcp
	} `yaml:"bind"`

	// serving domain suffix stripped from question names, e.g. ".mashb1t.de"
	Domain string `yaml:"domain"`

	// answer record ttl in seconds
	TTL uint32 `yaml:"ttl"`

	// max answer length in characters
	MaxChars int `yaml:"max_chars"`

	// per-question deadline in seconds
	Timeout uint `yaml:"timeout"`

	LLM struct {
		Model    string `yaml:"model"`
		Protocol string `yaml:"protocol"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
	} `yaml:"llm"`

	RateLimit struct {
		// 0 disables rate limiting
		TokensPerMinute int `yaml:"tokens_per_minute"`
	} `yaml:"ratelimit"`

	Cache struct {
		// 0 disables the answer cache
		Size int `yaml:"size"`
	} `yaml:"cache"`

	// collapse concurrent identical prompts into one backend stream
	Deduplicate bool `yaml:"deduplicate"`
}

// LoadConfig loads a yaml config from path p.
func LoadConfig(p string) (*Config, error) {
	c := new(Config)
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}

	return c, nil
}

// GenConfig generates a template config to path p.
func GenConfig(p string) error {
	c := new(Config)
	c.Bind.Addr = ":5353"
	c.Bind.Protocol = "all"
	c.Domain = ".mashb1t.de"
	c.TTL = 60
	c.MaxChars = 500
	c.Timeout = 4
	c.LLM.Model = "llama3.2"
	c.LLM.Protocol = "http"
	c.LLM.Host = "127.0.0.1"
	c.LLM.Port = 11434
	c.RateLimit.TokensPerMinute = 60

	f, err := os.Create(p)
	if err != nil {
		return err
	}
	defer f.Close()

	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	_, err = f.Write(b)

	return err
}
