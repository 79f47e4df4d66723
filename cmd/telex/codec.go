// Copyright 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/ZaparooProject/go-telex/codec"
	"github.com/spf13/cobra"
)

func newEncodeCmd(g *globalFlags) *cobra.Command {
	var sanitize bool

	cmd := &cobra.Command{
		Use:   "encode [text...]",
		Short: "Print the line codes for text",
		Long: `Print the line codes for text as hex, using the code table of the
configuration. Without arguments the text is read from stdin.`,
		Example: `  telex encode ABC
  1F 03 19 0E`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.newCodec()
			if err != nil {
				return err
			}
			text, err := argsOrStdin(cmd, args)
			if err != nil {
				return err
			}
			if sanitize {
				text = codec.Sanitize(text)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), formatCodes(c.Encode(text)))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&sanitize, "sanitize", "s", false, "Replace characters the teleprinter cannot print")
	return cmd
}

func newDecodeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "decode [hex...]",
		Short: "Print the text for hex line codes",
		Example: `  telex decode 1F 03 19 0E
  ABC`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.newCodec()
			if err != nil {
				return err
			}
			text, err := argsOrStdin(cmd, args)
			if err != nil {
				return err
			}
			codes, err := parseCodes(text)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), c.Decode(codes))
			return nil
		},
	}
}

func (g *globalFlags) newCodec() (*codec.Codec, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	cc, err := cfg.CodecConfig()
	if err != nil {
		return nil, err
	}
	return codec.New(cc), nil
}

func argsOrStdin(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// formatCodes renders codes as upper case hex pairs separated by spaces.
func formatCodes(codes []byte) string {
	return fmt.Sprintf("% X", codes)
}

// parseCodes accepts hex pairs with or without separating whitespace,
// commas or a 0x prefix on each pair.
func parseCodes(text string) ([]byte, error) {
	var sb strings.Builder
	for _, field := range strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	}) {
		field = strings.TrimPrefix(strings.TrimPrefix(field, "0x"), "0X")
		if len(field)%2 == 1 {
			field = "0" + field
		}
		_, _ = sb.WriteString(field)
	}
	codes, err := hex.DecodeString(sb.String())
	if err != nil {
		return nil, fmt.Errorf("parse line codes: %w", err)
	}
	return codes, nil
}
