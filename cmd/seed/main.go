// Seed program: bulk-loads a B+ tree index from a newline-delimited key
// file, the Go equivalent of the source's InsertFromFile test helper.
// Usage: go run ./cmd/seed <index-file> <index-name> <keys-file>
// Example: go run ./cmd/seed demo.idx students_primary keys.txt
package main

import (
	"bufio"
	"bytes"
	"fmt"
	"log"
	"os"
	"strings"

	"bptreeindex/btree"
	"bptreeindex/buffer"
	"bptreeindex/disk"
)

const poolSize = 32

func main() {
	if len(os.Args) < 4 {
		fmt.Fprintf(os.Stderr, "Usage: %s <index-file> <index-name> <keys-file>\n", os.Args[0])
		os.Exit(1)
	}
	indexFile, indexName, keysFile := os.Args[1], os.Args[2], os.Args[3]

	dm, err := disk.NewManager(indexFile)
	if err != nil {
		log.Fatalf("open index file: %v", err)
	}
	defer dm.Close()

	pool := buffer.NewPoolManager(poolSize, dm)
	tree := btree.NewBTree(indexName, pool, bytes.Compare, 64, 64)

	f, err := os.Open(keysFile)
	if err != nil {
		log.Fatalf("open keys file: %v", err)
	}
	defer f.Close()

	var inserted, skipped int
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key := []byte(line)
		ok, err := tree.Insert(key, key)
		if err != nil {
			log.Fatalf("insert %q: %v", line, err)
		}
		if ok {
			inserted++
		} else {
			skipped++
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("read keys file: %v", err)
	}
	if err := pool.FlushAllPages(); err != nil {
		log.Fatalf("flush buffer pool: %v", err)
	}
	if err := dm.Sync(); err != nil {
		log.Fatalf("sync index file: %v", err)
	}

	fmt.Printf("seeded %q: %d inserted, %d duplicates skipped\n", indexName, inserted, skipped)
}
