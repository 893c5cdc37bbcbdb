package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/intellect4all/ordkv"
)

func main() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("ordkv Demo: an append-optimized, ordered key-value store")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println()
	fmt.Println("Keys and values are fixed-width int64s. Writes land in an in-memory")
	fmt.Println("memtable; once it fills it flushes to an immutable, Bloom-filtered")
	fmt.Println("Static Index on disk, cascading into deeper levels on collision.")
	fmt.Println()

	dir := "./data-ordkv"
	os.RemoveAll(dir)
	defer os.RemoveAll(dir)

	// A tiny capacity forces several flushes during this demo so the
	// on-disk cascade is actually exercised below.
	db, err := ordkv.Create(dir, 2)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	fmt.Println("✓ Created database at", dir)

	fmt.Println("\n[Writing data]")
	testData := map[int64]int64{
		1001: 3000,
		1002: 2500,
		1003: 3500,
		2101: 99999,
		2102: 2999,
	}
	for k, v := range testData {
		if err := db.Put(k, v); err != nil {
			log.Printf("error writing %d: %v", k, err)
			continue
		}
		fmt.Printf("  PUT %d -> %d\n", k, v)
	}

	fmt.Println("\n[Reading data]")
	for k := range testData {
		v, ok, err := db.Get(k)
		if err != nil {
			log.Printf("error reading %d: %v", k, err)
		} else if !ok {
			log.Printf("key not found: %d", k)
		} else {
			fmt.Printf("  GET %d -> %d\n", k, v)
		}
	}

	fmt.Println("\n[Updating data]")
	if err := db.Put(1001, 3100); err != nil {
		log.Printf("error updating: %v", err)
	} else {
		fmt.Println("  PUT 1001 -> 3100 (updated)")
	}
	if v, ok, _ := db.Get(1001); ok {
		fmt.Printf("  GET 1001 -> %d\n", v)
	}

	fmt.Println("\n[Deleting data]")
	if err := db.Delete(2102); err != nil {
		log.Printf("error deleting: %v", err)
	} else {
		fmt.Println("  DELETE 2102")
	}
	if _, ok, _ := db.Get(2102); !ok {
		fmt.Println("  GET 2102 -> not found (as expected)")
	}

	fmt.Println("\n[Range scan 1000..1999]")
	it, err := db.Range(1000, 1999)
	if err != nil {
		log.Fatal(err)
	}
	count := 0
	for it.Valid() {
		fmt.Printf("  %d -> %d\n", it.Key(), it.Value())
		count++
		if err := it.Next(); err != nil {
			log.Fatal(err)
		}
	}
	fmt.Printf("  found %d keys in range\n", count)

	fmt.Println("\n[Full database scan, sorted order]")
	it, err = db.Range(-1<<62, 1<<62)
	if err != nil {
		log.Fatal(err)
	}
	total := 0
	for it.Valid() {
		fmt.Printf("  %d -> %d\n", it.Key(), it.Value())
		total++
		if err := it.Next(); err != nil {
			log.Fatal(err)
		}
	}
	fmt.Printf("  total: %d keys in sorted order\n", total)

	fmt.Println("\n[Statistics]")
	stats := db.Stats()
	fmt.Printf("  memtable: %d/%d\n", stats.MemTableLen, stats.MemTableCap)
	fmt.Printf("  occupied slots: %d/%d\n", stats.OccupiedSlots, stats.NumSlots)
	fmt.Printf("  puts: %d  gets: %d  flushes: %d\n", stats.PutCount, stats.GetCount, stats.FlushCount)
}
