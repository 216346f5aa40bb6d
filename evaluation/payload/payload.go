//
// Tencent is pleased to support the open source community by making trpc-evalbench-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-evalbench-go is licensed under the Apache License Version 2.0.
//
//

// Package payload defines test payload sets and the weighted workload expansion
// used by the load driver.
package payload

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Item is one test prompt within a payload group.
type Item struct {
	// Index orders items within their group.
	Index int `json:"index" yaml:"index"`
	// Prompt is the question or instruction sent to the model.
	Prompt string `json:"prompt" yaml:"prompt"`
	// Answer is the expected reference answer, used for evaluation pairing.
	Answer string `json:"answer,omitempty" yaml:"answer,omitempty"`
	// InputFile references the audio input for STT workloads.
	InputFile string `json:"input_file,omitempty" yaml:"input_file,omitempty"`
	// Distributor is the integer percentage of the group's total requests
	// assigned to this item. Distributors within a group must sum to 100.
	Distributor int `json:"distributor" yaml:"distributor"`
}

// Group is a named, ordered list of payload items.
type Group struct {
	Name  string
	Items []Item
}

// Set is an ordered list of payload groups.
type Set []Group

// Load reads a payload set from a JSON or YAML file. The file maps group names
// ("Payload1", "Payload2", ...) to item lists. Decoded maps do not preserve
// insertion order, so groups are ordered by the numeric suffix of their name,
// falling back to lexical order.
func Load(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload file: %w", err)
	}
	raw := make(map[string][]Item)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse payload yaml: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse payload json: %w", err)
		}
	}
	return FromMap(raw), nil
}

// FromMap builds an ordered payload set from a group-name keyed map.
func FromMap(raw map[string][]Item) Set {
	set := make(Set, 0, len(raw))
	for name, items := range raw {
		set = append(set, Group{Name: name, Items: items})
	}
	sort.Slice(set, func(i, j int) bool {
		ni, iOK := groupOrdinal(set[i].Name)
		nj, jOK := groupOrdinal(set[j].Name)
		if iOK && jOK && ni != nj {
			return ni < nj
		}
		return set[i].Name < set[j].Name
	})
	return set
}

// groupOrdinal extracts the trailing number of a group name such as "Payload3".
func groupOrdinal(name string) (int, bool) {
	i := len(name)
	for i > 0 && name[i-1] >= '0' && name[i-1] <= '9' {
		i--
	}
	if i == len(name) {
		return 0, false
	}
	n, err := strconv.Atoi(name[i:])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ValidateDistribution checks that the distributor percentages of the group sum
// to exactly 100.
func (g Group) ValidateDistribution() error {
	sum := 0
	for _, item := range g.Items {
		sum += item.Distributor
	}
	if sum != 100 {
		return fmt.Errorf("payload group %s: distributor percentages sum to %d, want 100", g.Name, sum)
	}
	return nil
}

// ExpandWorkload produces the weighted request workload for a group: each item
// is repeated floor(distributor/100*total) times, then the concatenated list is
// shuffled uniformly at random to avoid request clustering by prompt.
func (g Group) ExpandWorkload(total int, rng *rand.Rand) ([]Item, error) {
	if err := g.ValidateDistribution(); err != nil {
		return nil, err
	}
	if total <= 0 {
		return nil, fmt.Errorf("payload group %s: total request count %d must be positive", g.Name, total)
	}
	var workload []Item
	for _, item := range g.Items {
		copies := item.Distributor * total / 100
		for i := 0; i < copies; i++ {
			workload = append(workload, item)
		}
	}
	shuffle := rand.Shuffle
	if rng != nil {
		shuffle = rng.Shuffle
	}
	shuffle(len(workload), func(i, j int) {
		workload[i], workload[j] = workload[j], workload[i]
	})
	return workload, nil
}

// AnswerFor looks up the expected answer for a prompt by matching question text
// across all groups.
func (s Set) AnswerFor(prompt string) (string, bool) {
	for _, g := range s {
		for _, item := range g.Items {
			if strings.TrimSpace(item.Prompt) == strings.TrimSpace(prompt) {
				return item.Answer, true
			}
		}
	}
	return "", false
}
