//
// Tencent is pleased to support the open source community by making trpc-evalbench-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-evalbench-go is licensed under the Apache License Version 2.0.
//
//

package payload

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromMapOrdersGroupsByOrdinal(t *testing.T) {
	set := FromMap(map[string][]Item{
		"Payload10": nil,
		"Payload2":  nil,
		"Payload1":  nil,
	})
	require.Len(t, set, 3)
	assert.Equal(t, "Payload1", set[0].Name)
	assert.Equal(t, "Payload2", set[1].Name)
	assert.Equal(t, "Payload10", set[2].Name)
}

func TestValidateDistribution(t *testing.T) {
	valid := Group{Name: "Payload1", Items: []Item{
		{Prompt: "a", Distributor: 60},
		{Prompt: "b", Distributor: 40},
	}}
	require.NoError(t, valid.ValidateDistribution())

	invalid := Group{Name: "Payload1", Items: []Item{
		{Prompt: "a", Distributor: 60},
		{Prompt: "b", Distributor: 30},
	}}
	err := invalid.ValidateDistribution()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 90")
}

func TestExpandWorkloadCounts(t *testing.T) {
	group := Group{Name: "Payload1", Items: []Item{
		{Prompt: "a", Distributor: 60},
		{Prompt: "b", Distributor: 40},
	}}
	workload, err := group.ExpandWorkload(10, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Len(t, workload, 10)

	counts := map[string]int{}
	for _, item := range workload {
		counts[item.Prompt]++
	}
	assert.Equal(t, 6, counts["a"])
	assert.Equal(t, 4, counts["b"])
}

func TestExpandWorkloadFloorsCopies(t *testing.T) {
	group := Group{Name: "Payload1", Items: []Item{
		{Prompt: "a", Distributor: 33},
		{Prompt: "b", Distributor: 33},
		{Prompt: "c", Distributor: 34},
	}}
	// floor(33/100*10)=3, floor(34/100*10)=3: rounding may shrink the workload.
	workload, err := group.ExpandWorkload(10, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Len(t, workload, 9)
}

func TestExpandWorkloadRejectsBadInput(t *testing.T) {
	group := Group{Name: "Payload1", Items: []Item{{Prompt: "a", Distributor: 50}}}
	_, err := group.ExpandWorkload(10, nil)
	require.Error(t, err)

	group.Items[0].Distributor = 100
	_, err = group.ExpandWorkload(0, nil)
	require.Error(t, err)
}

func TestLoadJSONAndYAML(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "payload.json")
	jsonBody := `{"Payload2":[{"prompt":"q2","distributor":100}],"Payload1":[{"prompt":"q1","answer":"a1","distributor":100}]}`
	require.NoError(t, os.WriteFile(jsonPath, []byte(jsonBody), 0o600))
	set, err := Load(jsonPath)
	require.NoError(t, err)
	require.Len(t, set, 2)
	assert.Equal(t, "Payload1", set[0].Name)
	assert.Equal(t, "q1", set[0].Items[0].Prompt)

	yamlPath := filepath.Join(dir, "payload.yaml")
	yamlBody := "Payload1:\n  - prompt: q1\n    answer: a1\n    distributor: 100\n"
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlBody), 0o600))
	set, err = Load(yamlPath)
	require.NoError(t, err)
	require.Len(t, set, 1)
	assert.Equal(t, "a1", set[0].Items[0].Answer)
}

func TestAnswerFor(t *testing.T) {
	set := Set{{Name: "Payload1", Items: []Item{
		{Prompt: "what is up", Answer: "the sky"},
	}}}
	answer, ok := set.AnswerFor("  what is up ")
	require.True(t, ok)
	assert.Equal(t, "the sky", answer)

	_, ok = set.AnswerFor("unknown")
	assert.False(t, ok)
}
