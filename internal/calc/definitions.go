package calc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// DefinitionsFileName holds "name = value" lines loaded as local variables.
	DefinitionsFileName = "definitions"
	// ExchangeRatesFileName holds "CODE rate" lines loaded as constants.
	ExchangeRatesFileName = "exchange_rates"
)

// LoadLocalDefinitions defines every assignment in dir/definitions. A missing
// file is not an error; malformed lines are reported together.
func (e *ExprEngine) LoadLocalDefinitions(dir string) error {
	f, err := os.Open(filepath.Join(dir, DefinitionsFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to open local definitions: %w", err)
	}
	defer f.Close()

	var errs []error
	err = scanDefinitionLines(f, func(lineNo int, line string) {
		name, value, ok := ParseAssignment(line)
		if !ok {
			errs = append(errs, fmt.Errorf("%s:%d: not an assignment", DefinitionsFileName, lineNo))
			return
		}
		if err := e.DefineVariable(name, value); err != nil {
			errs = append(errs, fmt.Errorf("%s:%d: %w", DefinitionsFileName, lineNo, err))
		}
	})
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to read local definitions: %w", err))
	}
	return errors.Join(errs...)
}

// LoadExchangeRates registers one constant per "CODE rate" line of
// dir/exchange_rates.
func (e *ExprEngine) LoadExchangeRates(dir string) error {
	f, err := os.Open(filepath.Join(dir, ExchangeRatesFileName))
	if err != nil {
		return fmt.Errorf("failed to open exchange rates: %w", err)
	}
	defer f.Close()

	rates := make(map[string]float64)
	var errs []error
	err = scanDefinitionLines(f, func(lineNo int, line string) {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			errs = append(errs, fmt.Errorf("%s:%d: expected \"CODE rate\"", ExchangeRatesFileName, lineNo))
			return
		}
		rate, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s:%d: %w", ExchangeRatesFileName, lineNo, err))
			return
		}
		rates[fields[0]] = rate
	})
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to read exchange rates: %w", err))
	}

	e.mu.Lock()
	for code, rate := range rates {
		e.defineConstantLocked(code, Float(rate))
	}
	e.mu.Unlock()
	e.logger.Debug("loaded exchange rates", "count", len(rates))
	return errors.Join(errs...)
}

// scanDefinitionLines calls fn for every non-blank, non-comment line.
func scanDefinitionLines(r io.Reader, fn func(lineNo int, line string)) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fn(lineNo, line)
	}
	return scanner.Err()
}
