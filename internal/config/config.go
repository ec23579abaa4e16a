// =============================================================================
// Landed Cost Calculator - Configuration Module
// =============================================================================
//
// This module loads the application configuration and the optional seller
// profiles.
//
// CONFIGURATION FILES:
//   1. Main Config (config.yaml): directories, output, processing, parser
//      and currency conversion settings
//   2. Seller Profiles (profiles/*.yaml): parser overrides selected by the
//      input file name, e.g. a seller whose invoices print a bare "$" that
//      means Australian dollars
//   3. Environment (.env and LANDEDCOST_* variables): overrides applied on
//      top of config.yaml
//
// PRECEDENCE (highest first):
//   LANDEDCOST_* environment variables > .env file > config.yaml > defaults
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LANDEDCOST_"

// Supported output formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatXML  = "xml"
)

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// InputDir is scanned for invoice files (.pdf and .txt).
	// Default: "./input"
	InputDir string `yaml:"input_dir"`

	// OutputDir receives the generated CSV and XLSX files, the error log
	// and the processing summary.
	// Default: "./output"
	OutputDir string `yaml:"output_dir"`

	// InputArchiveDir receives processed invoices when ArchiveInputs is set.
	// Invoices that fail are never moved.
	// Default: "./input_archive"
	InputArchiveDir string `yaml:"input_archive_dir"`

	// ProfilesDir holds seller profile files. Missing is fine.
	// Default: "./profiles"
	ProfilesDir string `yaml:"profiles_dir"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is an optional log file written in addition to the console.
	LogFile string `yaml:"log_file"`

	// LogLevel is one of "debug", "info", "warn", "error".
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// OutputNameFormat names the output files of a run. Placeholders:
	//   {uuid}      - a random UUID
	//   {timestamp} - run start time (YYYYMMDD_HHMMSS)
	//   {date}      - run start date (YYYYMMDD)
	//   {time}      - run start time of day (HHMMSS)
	// The extension is added per format.
	// Default: "landed_costs_{timestamp}"
	OutputNameFormat string `yaml:"output_name_format"`

	// OutputFormats lists the sinks to write: any of "csv", "xlsx" and "xml".
	// Default: ["csv"]
	OutputFormats []string `yaml:"output_formats"`

	// CSVDelimiter separates CSV fields: "comma", "tab", "pipe",
	// "semicolon" or a single character.
	// Default: "comma"
	CSVDelimiter string `yaml:"csv_delimiter"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// MaxConcurrency is the maximum number of invoices parsed at once.
	// Default: 4
	MaxConcurrency int `yaml:"max_concurrency"`

	// ContinueOnError keeps the batch going after a document fails.
	// When false, no new documents are started after the first failure.
	// Default: true
	ContinueOnError *bool `yaml:"continue_on_error"`

	// ArchiveInputs moves successfully processed invoices to InputArchiveDir.
	ArchiveInputs bool `yaml:"archive_inputs"`

	// Parser tunes the invoice parser.
	Parser ParserSettings `yaml:"parser"`

	// Currency configures conversion to a single base currency.
	Currency CurrencySettings `yaml:"currency"`
}

// ParserSettings tunes item scanning and field parsing.
type ParserSettings struct {
	// ExtraColors extends the built-in color vocabulary.
	ExtraColors []string `yaml:"extra_colors"`

	// LookaheadLines bounds how long an unterminated item may run before
	// its oldest lines are discarded as noise.
	// Default: 8
	LookaheadLines int `yaml:"lookahead_lines"`

	// MaxQuantity is the largest plausible item quantity.
	// Default: 100000
	MaxQuantity int `yaml:"max_quantity"`

	// DollarDefault is the currency assumed for a bare "$".
	// Default: "USD"
	DollarDefault string `yaml:"dollar_default"`
}

// CurrencySettings configures conversion to a base currency.
type CurrencySettings struct {
	// BaseCurrency enables conversion when set, e.g. "AUD".
	BaseCurrency string `yaml:"base_currency"`

	// ExchangeRates maps a currency code to the number of base currency
	// units one unit of it buys.
	//
	// Example:
	//   exchange_rates:
	//     USD: 1.52
	//     EUR: 1.64
	ExchangeRates map[string]float64 `yaml:"exchange_rates"`

	// RatesFile is an optional .csv or .xlsx table of rates with Currency
	// and Rate columns. Entries in ExchangeRates take precedence.
	RatesFile string `yaml:"rates_file"`

	// RatesSheet names the workbook sheet to read; default the first.
	RatesSheet string `yaml:"rates_sheet"`
}

// KeepGoing reports whether the batch continues after a failure.
func (c *MainConfig) KeepGoing() bool {
	return c.ContinueOnError == nil || *c.ContinueOnError
}

// WantsFormat reports whether format is among the configured outputs.
func (c *MainConfig) WantsFormat(format string) bool {
	for _, f := range c.OutputFormats {
		if strings.EqualFold(f, format) {
			return true
		}
	}
	return false
}

// =============================================================================
// SELLER PROFILE STRUCTURE
// =============================================================================

// Profile overrides parser settings for invoices whose file name matches
// one of its patterns.
type Profile struct {
	// Name identifies the profile in logs.
	Name string `yaml:"name"`

	// FileMatchingPatterns are glob patterns matched against the base name
	// of the input file.
	//
	// Examples:
	//   - "bricksandmore_*.pdf"
	//   - "*_AU_*.txt"
	FileMatchingPatterns []string `yaml:"file_matching_patterns"`

	// Parser replaces the non-zero fields of the main parser settings.
	// ExtraColors are added to the main list.
	Parser ParserSettings `yaml:"parser"`
}

// Matches reports whether the profile applies to filePath.
func (p *Profile) Matches(filePath string) bool {
	name := filepath.Base(filePath)
	for _, pattern := range p.FileMatchingPatterns {
		if ok, err := filepath.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file and applies
// environment overrides.
//
// PARAMETERS:
//   - configPath: The path to the main configuration file.
//
// RETURNS:
//   - A pointer to the MainConfig struct.
//   - An error if the file cannot be read, parsed or validated.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := ParseMainConfig(data)
	if err != nil {
		return nil, err
	}

	if err := ensureDirectories(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// ParseMainConfig parses configuration YAML, applies environment overrides
// and defaults, and validates the result. It touches no directories.
func ParseMainConfig(data []byte) (*MainConfig, error) {
	var config MainConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := applyEnvOverrides(&config); err != nil {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadEnvFile loads KEY=value pairs from an env file into the process
// environment. A missing file is not an error.
//
// RETURNS:
//   - true if the file was found and loaded.
//   - An error if the file exists but cannot be parsed.
func LoadEnvFile(path string) (bool, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, nil
	}
	if err := godotenv.Load(path); err != nil {
		return false, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return true, nil
}

// applyEnvOverrides copies LANDEDCOST_* variables over file values.
func applyEnvOverrides(config *MainConfig) error {
	strs := map[string]*string{
		"INPUT_DIR":          &config.InputDir,
		"OUTPUT_DIR":         &config.OutputDir,
		"INPUT_ARCHIVE_DIR":  &config.InputArchiveDir,
		"PROFILES_DIR":       &config.ProfilesDir,
		"LOG_FILE":           &config.LogFile,
		"LOG_LEVEL":          &config.LogLevel,
		"OUTPUT_NAME_FORMAT": &config.OutputNameFormat,
		"CSV_DELIMITER":      &config.CSVDelimiter,
		"DOLLAR_DEFAULT":     &config.Parser.DollarDefault,
		"BASE_CURRENCY":      &config.Currency.BaseCurrency,
		"RATES_FILE":         &config.Currency.RatesFile,
	}
	for key, target := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*target = v
		}
	}

	if v, ok := os.LookupEnv(EnvPrefix + "OUTPUT_FORMATS"); ok {
		config.OutputFormats = nil
		for _, f := range strings.Split(v, ",") {
			if f = strings.TrimSpace(f); f != "" {
				config.OutputFormats = append(config.OutputFormats, f)
			}
		}
	}

	ints := map[string]*int{
		"MAX_CONCURRENCY": &config.MaxConcurrency,
		"LOOKAHEAD_LINES": &config.Parser.LookaheadLines,
		"MAX_QUANTITY":    &config.Parser.MaxQuantity,
	}
	for key, target := range ints {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			}
			*target = n
		}
	}

	if v, ok := os.LookupEnv(EnvPrefix + "ARCHIVE_INPUTS"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sARCHIVE_INPUTS: %w", EnvPrefix, err)
		}
		config.ArchiveInputs = b
	}

	return nil
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.InputDir == "" {
		config.InputDir = "./input"
	}
	if config.OutputDir == "" {
		config.OutputDir = "./output"
	}
	if config.InputArchiveDir == "" {
		config.InputArchiveDir = "./input_archive"
	}
	if config.ProfilesDir == "" {
		config.ProfilesDir = "./profiles"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.OutputNameFormat == "" {
		config.OutputNameFormat = "landed_costs_{timestamp}"
	}
	if len(config.OutputFormats) == 0 {
		config.OutputFormats = []string{FormatCSV}
	}
	if config.CSVDelimiter == "" {
		config.CSVDelimiter = "comma"
	}
	if config.MaxConcurrency == 0 {
		config.MaxConcurrency = 4
	}
	if config.Parser.LookaheadLines == 0 {
		config.Parser.LookaheadLines = 8
	}
	if config.Parser.MaxQuantity == 0 {
		config.Parser.MaxQuantity = 100000
	}
	if config.Parser.DollarDefault == "" {
		config.Parser.DollarDefault = "USD"
	}
	config.Parser.DollarDefault = strings.ToUpper(config.Parser.DollarDefault)
	config.Currency.BaseCurrency = strings.ToUpper(config.Currency.BaseCurrency)
}

// Delimiter resolves a csv_delimiter name to the separator rune.
func Delimiter(name string) (rune, error) {
	switch strings.ToLower(name) {
	case "", "comma":
		return ',', nil
	case "tab":
		return '\t', nil
	case "pipe":
		return '|', nil
	case "semicolon":
		return ';', nil
	}
	r := []rune(name)
	if len(r) != 1 || r[0] == '"' || r[0] == '\r' || r[0] == '\n' {
		return 0, fmt.Errorf("csv_delimiter %q must be comma, tab, pipe, semicolon or a single character", name)
	}
	return r[0], nil
}

var knownCurrencies = map[string]bool{
	"USD": true, "AUD": true, "EUR": true, "GBP": true,
	"SEK": true, "CAD": true, "NZD": true, "DKK": true,
}

var knownLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// validateMainConfig validates the main configuration.
func validateMainConfig(config *MainConfig) error {
	if !knownLevels[strings.ToLower(config.LogLevel)] {
		return fmt.Errorf("unknown log_level %q", config.LogLevel)
	}
	if config.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be at least 1, got %d", config.MaxConcurrency)
	}
	for _, f := range config.OutputFormats {
		switch strings.ToLower(f) {
		case FormatCSV, FormatXLSX, FormatXML:
		default:
			return fmt.Errorf("unknown output format %q", f)
		}
	}
	if _, err := Delimiter(config.CSVDelimiter); err != nil {
		return err
	}
	if config.Parser.LookaheadLines < 1 {
		return fmt.Errorf("parser.lookahead_lines must be at least 1")
	}
	if config.Parser.MaxQuantity < 1 {
		return fmt.Errorf("parser.max_quantity must be at least 1")
	}
	if !knownCurrencies[config.Parser.DollarDefault] {
		return fmt.Errorf("parser.dollar_default %q is not a supported currency", config.Parser.DollarDefault)
	}

	if rf := config.Currency.RatesFile; rf != "" {
		if config.Currency.BaseCurrency == "" {
			return fmt.Errorf("currency.rates_file requires currency.base_currency")
		}
		switch strings.ToLower(filepath.Ext(rf)) {
		case ".csv", ".xlsx":
		default:
			return fmt.Errorf("currency.rates_file %q must be a .csv or .xlsx file", rf)
		}
	}

	if base := config.Currency.BaseCurrency; base != "" {
		if !knownCurrencies[base] {
			return fmt.Errorf("currency.base_currency %q is not a supported currency", base)
		}
		for code, rate := range config.Currency.ExchangeRates {
			if !knownCurrencies[strings.ToUpper(code)] {
				return fmt.Errorf("currency.exchange_rates: unknown currency %q", code)
			}
			if rate <= 0 {
				return fmt.Errorf("currency.exchange_rates: rate for %s must be positive", code)
			}
		}
	}

	return nil
}

// MergeExchangeRates adds rates read from currency.rates_file. Rates set
// in the configuration itself are kept.
//
// RETURNS:
//   - An error if a rate names an unsupported currency.
func (c *MainConfig) MergeExchangeRates(rates map[string]float64) error {
	if c.Currency.ExchangeRates == nil {
		c.Currency.ExchangeRates = make(map[string]float64, len(rates))
	}
	configured := make(map[string]bool, len(c.Currency.ExchangeRates))
	for code := range c.Currency.ExchangeRates {
		configured[strings.ToUpper(code)] = true
	}

	for code, rate := range rates {
		code = strings.ToUpper(code)
		if !knownCurrencies[code] {
			return fmt.Errorf("%s: unknown currency %q", c.Currency.RatesFile, code)
		}
		if rate <= 0 {
			return fmt.Errorf("%s: rate for %s must be positive", c.Currency.RatesFile, code)
		}
		if !configured[code] {
			c.Currency.ExchangeRates[code] = rate
		}
	}
	return nil
}

// ensureDirectories creates the working directories if they do not exist.
func ensureDirectories(config *MainConfig) error {
	dirs := []string{config.InputDir, config.OutputDir}
	if config.ArchiveInputs {
		dirs = append(dirs, config.InputArchiveDir)
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// =============================================================================
// PROFILE LOADING
// =============================================================================

// LoadProfiles loads every seller profile in a directory. A missing
// directory yields no profiles.
//
// RETURNS:
//   - Profiles in file name order.
//   - An error if any file cannot be parsed.
func LoadProfiles(profilesDir string) ([]*Profile, error) {
	if _, err := os.Stat(profilesDir); os.IsNotExist(err) {
		return nil, nil
	}

	files, err := filepath.Glob(filepath.Join(profilesDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}
	ymlFiles, err := filepath.Glob(filepath.Join(profilesDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list profile files: %w", err)
	}
	files = append(files, ymlFiles...)

	var profiles []*Profile
	for _, file := range files {
		profile, err := loadProfile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		profiles = append(profiles, profile)
	}

	return profiles, nil
}

func loadProfile(filePath string) (*Profile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}

	if profile.Name == "" {
		profile.Name = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	}
	profile.Parser.DollarDefault = strings.ToUpper(profile.Parser.DollarDefault)
	if d := profile.Parser.DollarDefault; d != "" && !knownCurrencies[d] {
		return nil, fmt.Errorf("parser.dollar_default %q is not a supported currency", d)
	}

	return &profile, nil
}

// ParserFor returns the parser settings for an input file: the main
// settings, overridden by the first matching profile.
//
// RETURNS:
//   - The effective settings.
//   - The name of the matching profile, or "" when none matched.
func ParserFor(config *MainConfig, profiles []*Profile, filePath string) (ParserSettings, string) {
	settings := config.Parser
	for _, p := range profiles {
		if !p.Matches(filePath) {
			continue
		}
		if p.Parser.LookaheadLines > 0 {
			settings.LookaheadLines = p.Parser.LookaheadLines
		}
		if p.Parser.MaxQuantity > 0 {
			settings.MaxQuantity = p.Parser.MaxQuantity
		}
		if p.Parser.DollarDefault != "" {
			settings.DollarDefault = p.Parser.DollarDefault
		}
		if len(p.Parser.ExtraColors) > 0 {
			colors := make([]string, 0, len(settings.ExtraColors)+len(p.Parser.ExtraColors))
			colors = append(colors, settings.ExtraColors...)
			settings.ExtraColors = append(colors, p.Parser.ExtraColors...)
		}
		return settings, p.Name
	}
	return settings, ""
}
