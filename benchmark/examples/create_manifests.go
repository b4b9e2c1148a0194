package main

import (
	"fmt"
	"log"

	"github.com/nvr-ai/go-j2kbench/benchmark"
)

// Example program to create and save fixture manifests
func main() {
	// The full corpus, as built into j2kbench
	full := benchmark.DefaultFixtureSet()
	if err := benchmark.SaveFixtureSet(full, "full_corpus.yaml"); err != nil {
		log.Fatalf("Failed to save full corpus: %v", err)
	}
	fmt.Printf("Saved %d fixtures\n", len(full.Fixtures))

	// Grayscale 16-bit modalities only
	var mono []benchmark.FixtureDescriptor
	for _, f := range full.Fixtures {
		if f.ComponentCount == 1 && f.BitsPerSample == 16 {
			mono = append(mono, f)
		}
	}
	monoSet := &benchmark.FixtureSet{
		Name:        "mono16",
		Description: "Single component 16-bit fixtures",
		Fixtures:    mono,
	}
	if err := benchmark.SaveFixtureSet(monoSet, "mono16_corpus.yaml"); err != nil {
		log.Fatalf("Failed to save mono16 corpus: %v", err)
	}
	fmt.Printf("Saved %d mono16 fixtures\n", len(mono))

	// A quick subset for smoke runs
	quick, err := benchmark.SelectFixtures(full.Fixtures, []string{"CT1", "MR1", "US1", "VL1"})
	if err != nil {
		log.Fatalf("Failed to select quick fixtures: %v", err)
	}
	err = benchmark.SaveFixtureSet(&benchmark.FixtureSet{
		Name:        "quick",
		Description: "One fixture per frame layout",
		Fixtures:    quick,
	}, "quick_corpus.json")
	if err != nil {
		log.Fatalf("Failed to save quick corpus: %v", err)
	}
	fmt.Printf("Saved %d quick fixtures\n", len(quick))

	// Custom fixture using builder, for locally produced frames
	custom := benchmark.NewFixtureBuilder("DX1").
		WithDimensions(2048, 2560).
		WithBitsPerSample(12).
		WithComponents(1).
		Build()

	customSet := &benchmark.FixtureSet{
		Name:        "custom",
		Description: "12-bit digital radiography frame",
		Fixtures:    []benchmark.FixtureDescriptor{custom},
	}
	if err := benchmark.SaveFixtureSet(customSet, "custom_corpus.yaml"); err != nil {
		log.Fatalf("Failed to save custom corpus: %v", err)
	}
	fmt.Printf("Saved %d custom fixtures\n", len(customSet.Fixtures))

	fmt.Println("All manifest files created successfully!")
}
