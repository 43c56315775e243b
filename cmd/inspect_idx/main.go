// Inspect a B+ tree index file, writing a Graphviz .dot rendering of its
// current page layout.
// Usage: go run ./cmd/inspect_idx <index-file> <index-name> [output.dot]
// Example: go run ./cmd/inspect_idx demo.idx students_primary tree.dot
package main

import (
	"bytes"
	"fmt"
	"log"
	"os"

	"bptreeindex/btree"
	"bptreeindex/buffer"
	"bptreeindex/disk"
)

const poolSize = 32

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "Usage: %s <index-file> <index-name> [output.dot]\n", os.Args[0])
		os.Exit(1)
	}
	indexFile, indexName := os.Args[1], os.Args[2]

	out := os.Stdout
	if len(os.Args) >= 4 {
		f, err := os.Create(os.Args[3])
		if err != nil {
			log.Fatalf("create output file: %v", err)
		}
		defer f.Close()
		out = f
	}

	dm, err := disk.NewManager(indexFile)
	if err != nil {
		log.Fatalf("open index file: %v", err)
	}
	defer dm.Close()

	pool := buffer.NewPoolManager(poolSize, dm)
	tree := btree.NewBTree(indexName, pool, bytes.Compare, 64, 64)

	if err := tree.Dump(out); err != nil {
		log.Fatalf("dump %q: %v", indexName, err)
	}
}
