// Package loader reads fixed-interval option-chain, spot, and metadata
// files into immutable day snapshots.
package loader

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"options-backtester/internal/errors"
	"options-backtester/internal/models"
)

// defaultCutoffIdx applies when the day's metadata carries no jobEndIdx.
const defaultCutoffIdx = 4660

// FileLoader reads day data from the on-disk layout:
//
//	<dataPath>/<SYMBOL>/<date>_BK.csv          option rows: tick,type,strike,price
//	<dataPath>/<SYMBOL>/Spot/<symbol>.csv      spot rows:   date,tick,o,h,l,close
//	<dataPath>/<SYMBOL>/<date>.prop            key=value metadata, jobEndIdx included
type FileLoader struct {
	dataPath string
	logger   zerolog.Logger
}

// New creates a loader rooted at dataPath.
func New(dataPath string, logger zerolog.Logger) *FileLoader {
	if dataPath == "" {
		dataPath = "5SecData"
	}
	return &FileLoader{dataPath: dataPath, logger: logger}
}

// AvailableDates lists the trading dates with option data for a symbol,
// sorted ascending.
func (l *FileLoader) AvailableDates(symbol string) ([]string, error) {
	dir := filepath.Join(l.dataPath, strings.ToUpper(symbol))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "listing data directory %s", dir)
	}

	var dates []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, "_BK.csv") {
			dates = append(dates, strings.TrimSuffix(name, "_BK.csv"))
		}
	}
	sort.Strings(dates)
	return dates, nil
}

// LoadTradingDay assembles the immutable snapshot for one day. A missing
// option file is reported via ErrDayNotFound so callers can skip and
// continue.
func (l *FileLoader) LoadTradingDay(symbol, date string) (*models.DaySnapshot, error) {
	dir := filepath.Join(l.dataPath, strings.ToUpper(symbol))

	optionFile := filepath.Join(dir, date+"_BK.csv")
	if _, err := os.Stat(optionFile); err != nil {
		return nil, errors.Wrapf(errors.ErrDayNotFound, "%s %s", symbol, date)
	}

	options, err := l.parseOptionData(optionFile)
	if err != nil {
		return nil, errors.NewDataError(date, 0, "parsing option data", err)
	}

	spotFile := filepath.Join(dir, "Spot", strings.ToLower(symbol)+".csv")
	spot, err := l.parseSpotData(spotFile, date)
	if err != nil {
		l.logger.Warn().Err(err).Str("file", spotFile).Msg("Could not read spot data")
		spot = make(map[int]float64)
	}

	metadata := l.parsePropFile(filepath.Join(dir, date+".prop"))

	cutoff := defaultCutoffIdx
	if v, ok := metadata["jobEndIdx"]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			cutoff = n
		}
	}

	return &models.DaySnapshot{
		Date:      date,
		Spot:      spot,
		Options:   options,
		CutoffIdx: cutoff,
		Metadata:  metadata,
	}, nil
}

// parseOptionData reads option rows of the form tick,type,strike,price.
// Malformed lines are skipped.
func (l *FileLoader) parseOptionData(path string) (map[int]models.Surface, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening option data %s", path)
	}
	defer f.Close()

	options := make(map[int]models.Surface)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		parts := strings.Split(scanner.Text(), ",")
		if len(parts) < 4 {
			continue
		}

		tick, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			continue
		}
		optionType := models.OptionType(strings.TrimSpace(parts[1]))
		if optionType != models.OptionCE && optionType != models.OptionPE {
			continue
		}
		strike, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
		if err != nil {
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil {
			continue
		}

		surface, ok := options[tick]
		if !ok {
			surface = make(models.Surface)
			options[tick] = surface
		}
		if surface[optionType] == nil {
			surface[optionType] = make(map[float64]float64)
		}
		surface[optionType][strike] = price
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading option data %s", path)
	}
	return options, nil
}

// parseSpotData reads spot rows date,tick,open,high,low,close and keeps the
// close price for rows matching the target date.
func (l *FileLoader) parseSpotData(path, targetDate string) (map[int]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening spot data %s", path)
	}
	defer f.Close()

	spot := make(map[int]float64)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		parts := strings.Split(scanner.Text(), ",")
		if len(parts) < 6 || strings.TrimSpace(parts[0]) != targetDate {
			continue
		}
		tick, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			continue
		}
		closePrice, err := strconv.ParseFloat(strings.TrimSpace(parts[5]), 64)
		if err != nil {
			continue
		}
		spot[tick] = closePrice
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading spot data %s", path)
	}
	return spot, nil
}

// parsePropFile reads key=value metadata. A missing file yields empty
// metadata; defaults cover the rest.
func (l *FileLoader) parsePropFile(path string) map[string]string {
	metadata := make(map[string]string)

	f, err := os.Open(path)
	if err != nil {
		return metadata
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		metadata[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return metadata
}
