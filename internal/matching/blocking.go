package matching

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/armon/go-radix"

	"github.com/aegisshield/entity-network/internal/models"
	"github.com/aegisshield/entity-network/internal/standardization"
)

// Strategy selects how block keys are derived from a record
type Strategy string

const (
	StrategySoundex     Strategy = "soundex"
	StrategyMetaphone   Strategy = "metaphone"
	StrategyNGram       Strategy = "ngram"
	StrategyFirstLetter Strategy = "first_letter"
	StrategyLocation    Strategy = "location"
	StrategyToken       Strategy = "token"
)

// ParseStrategy validates a strategy name
func ParseStrategy(s string) (Strategy, error) {
	switch strategy := Strategy(strings.ToLower(strings.TrimSpace(s))); strategy {
	case StrategySoundex, StrategyMetaphone, StrategyNGram, StrategyFirstLetter, StrategyLocation, StrategyToken:
		return strategy, nil
	default:
		return "", fmt.Errorf("unknown blocking strategy %q", s)
	}
}

// BlockingConfig controls block key generation
type BlockingConfig struct {
	Strategies []Strategy
	NGramSize  int
	MaxNGrams  int
}

// DefaultBlockingConfig returns soundex + trigram blocking
func DefaultBlockingConfig() BlockingConfig {
	return BlockingConfig{
		Strategies: []Strategy{StrategySoundex, StrategyNGram},
		NGramSize:  3,
		MaxNGrams:  3,
	}
}

// Indexer derives block keys for records. Records that share no key are never compared.
type Indexer struct {
	config BlockingConfig
	logger *slog.Logger
}

// NewIndexer creates a new blocking indexer
func NewIndexer(config BlockingConfig, logger *slog.Logger) *Indexer {
	if config.NGramSize < 1 {
		config.NGramSize = 3
	}
	if config.MaxNGrams < 1 {
		config.MaxNGrams = 3
	}
	if len(config.Strategies) == 0 {
		config.Strategies = DefaultBlockingConfig().Strategies
	}
	return &Indexer{
		config: config,
		logger: logger,
	}
}

// Config returns the effective blocking configuration
func (ix *Indexer) Config() BlockingConfig {
	config := ix.config
	config.Strategies = append([]Strategy(nil), ix.config.Strategies...)
	return config
}

// Keys returns the deduplicated block keys of a standardized record
func (ix *Indexer) Keys(record models.RawRecord) []string {
	name := record.Attributes.FirstText(models.AttrNameStandardized, models.AttrName)

	var keys []string
	for _, strategy := range ix.config.Strategies {
		switch strategy {
		case StrategySoundex:
			if name != "" {
				keys = append(keys, "soundex_"+standardization.Soundex(name))
			}
		case StrategyMetaphone:
			if code := standardization.Metaphone(name); code != "" {
				keys = append(keys, "metaphone_"+code)
			}
		case StrategyNGram:
			for _, gram := range ix.ngramKeys(name) {
				keys = append(keys, "ngram_"+gram)
			}
		case StrategyFirstLetter:
			if key := firstLetterYearKey(name, record.Attributes); key != "" {
				keys = append(keys, "fl_"+key)
			}
		case StrategyLocation:
			if key := locationKey(record.Attributes); key != "" {
				keys = append(keys, "geo_"+key)
			}
		case StrategyToken:
			for _, token := range standardization.NameTokens(name) {
				keys = append(keys, "token_"+token)
			}
		}
	}

	return dedupe(keys)
}

func (ix *Indexer) ngramKeys(name string) []string {
	if name == "" {
		return nil
	}
	n := ix.config.NGramSize

	runes := []rune(strings.ReplaceAll(strings.ToLower(name), " ", ""))
	if len(runes) < n {
		return []string{strings.ToLower(name)}
	}

	var grams []string
	for i := 0; i+n <= len(runes) && len(grams) < ix.config.MaxNGrams; i++ {
		grams = append(grams, string(runes[i:i+n]))
	}
	return grams
}

func firstLetterYearKey(name string, attrs models.Attributes) string {
	var first rune
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			first = unicode.ToUpper(r)
			break
		}
	}
	if first == 0 {
		return ""
	}

	year := "0000"
	if v, ok := attrs.Get(models.AttrYearOfBirth); ok {
		if f, ok := v.AsNumber(); ok && f > 0 {
			year = fmt.Sprintf("%04d", int(f))
		}
	}
	return string(first) + "_" + year
}

func locationKey(attrs models.Attributes) string {
	country := attrs.Text(models.AttrCountry)
	city := attrs.Text(models.AttrCity)
	if country == "" && city == "" {
		return ""
	}
	return truncateCode(country, 2) + "_" + truncateCode(city, 3)
}

func truncateCode(s string, n int) string {
	runes := []rune(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", "")))
	if len(runes) == 0 {
		return "XX"
	}
	if len(runes) > n {
		runes = runes[:n]
	}
	return string(runes)
}

func dedupe(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := keys[:0]
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

// Block is one bucket of the block index
type Block struct {
	Key     string
	Members []int
}

// BlockIndex maps block keys to positions in the record slice it was built from
type BlockIndex struct {
	tree *radix.Tree
}

// NewBlockIndex creates an empty index
func NewBlockIndex() *BlockIndex {
	return &BlockIndex{tree: radix.New()}
}

// Add appends a record position under key
func (b *BlockIndex) Add(key string, member int) {
	existing, ok := b.tree.Get(key)
	if !ok {
		b.tree.Insert(key, []int{member})
		return
	}
	b.tree.Insert(key, append(existing.([]int), member))
}

// Lookup returns the members of one block
func (b *BlockIndex) Lookup(key string) []int {
	v, ok := b.tree.Get(key)
	if !ok {
		return nil
	}
	return v.([]int)
}

// Len returns the number of distinct keys
func (b *BlockIndex) Len() int {
	return b.tree.Len()
}

// Blocks returns every block holding at least two records, in key order
func (b *BlockIndex) Blocks() []Block {
	return b.collect(func(fn radix.WalkFn) { b.tree.Walk(fn) })
}

// Prefix returns the comparable blocks whose key starts with prefix, e.g. "soundex_"
func (b *BlockIndex) Prefix(prefix string) []Block {
	return b.collect(func(fn radix.WalkFn) { b.tree.WalkPrefix(prefix, fn) })
}

func (b *BlockIndex) collect(walk func(radix.WalkFn)) []Block {
	var blocks []Block
	walk(func(key string, v interface{}) bool {
		members := v.([]int)
		if len(members) >= 2 {
			blocks = append(blocks, Block{Key: key, Members: members})
		}
		return false
	})
	return blocks
}

// BuildFromKeys indexes precomputed keys; keys[i] belongs to record i
func BuildFromKeys(keys [][]string) *BlockIndex {
	index := NewBlockIndex()
	for i, recordKeys := range keys {
		for _, key := range recordKeys {
			index.Add(key, i)
		}
	}
	return index
}

// Build computes keys for each record and indexes them
func (ix *Indexer) Build(records []models.RawRecord) *BlockIndex {
	keys := make([][]string, len(records))
	for i, record := range records {
		keys[i] = ix.Keys(record)
	}

	index := BuildFromKeys(keys)
	ix.logger.Debug("Block index built",
		"records", len(records),
		"keys", index.Len())
	return index
}
