package loader

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/sarchlab/rv5sim/emu"
)

// LoadHex reads a hex program. Each line holds one instruction word in
// hexadecimal, optionally prefixed with 0x, followed by optional assembly
// text shown in traces. Blank lines are ignored. Lines that do not start
// with a full 8-digit hex word are skipped and reported in Warnings.
func LoadHex(r io.Reader) (*Program, error) {
	var (
		words    []uint32
		text     []string
		warnings []string
	)

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		word, rest, ok := parseHexLine(line)
		if !ok {
			warnings = append(warnings,
				fmt.Sprintf("line %d: skipping invalid line %q", lineNo, line))
			continue
		}

		words = append(words, word)
		text = append(text, rest)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read hex program: %w", err)
	}

	if len(words) == 0 {
		return nil, ErrNoInstructions
	}

	return &Program{
		Image:    emu.NewImage(words, text),
		Warnings: warnings,
		Format:   FormatHex,
	}, nil
}

func parseHexLine(line string) (word uint32, rest string, ok bool) {
	token := line
	if i := strings.IndexFunc(line, unicode.IsSpace); i >= 0 {
		token, rest = line[:i], line[i:]
	}

	token = strings.TrimPrefix(strings.TrimPrefix(token, "0x"), "0X")
	if len(token) != 8 {
		return 0, "", false
	}

	v, err := strconv.ParseUint(token, 16, 32)
	if err != nil {
		return 0, "", false
	}

	return uint32(v), strings.TrimSpace(rest), true
}
