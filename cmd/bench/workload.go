package main

import (
	"fmt"
	"math/rand"
	"time"

	"bptreeindex/btree"
)

// WorkloadType names a mixed read/write distribution to run against a tree,
// the same shape as the teacher pack's OLTP/OLAP/Reporting split.
type WorkloadType string

const (
	OLTP      WorkloadType = "OLTP (90/10 read/write)"
	OLAP      WorkloadType = "OLAP (10/90 read/write)"
	Reporting WorkloadType = "Reporting (range scan)"
)

func genKey(i int) []byte { return []byte(fmt.Sprintf("k%08d", i)) }

// executeWorkload runs ops operations of the given mix against tree, whose
// keys are drawn from [0, n). Returns the latency of each individual
// operation in nanoseconds, for percentile reporting.
func executeWorkload(tree *btree.BTree, wType WorkloadType, ops, n int) ([]int64, error) {
	latencies := make([]int64, 0, ops)
	for i := 0; i < ops; i++ {
		choice := rand.Intn(100)
		key := genKey(rand.Intn(n))

		start := time.Now()
		var err error
		switch wType {
		case OLTP:
			if choice < 90 {
				_, _, err = tree.GetValue(key)
			} else {
				_, err = tree.Insert(key, key)
			}
		case OLAP:
			if choice < 10 {
				_, _, err = tree.GetValue(key)
			} else {
				_, err = tree.Insert(key, key)
			}
		case Reporting:
			err = scanRange(tree, key, 100)
		}
		latencies = append(latencies, time.Since(start).Nanoseconds())
		if err != nil {
			return nil, err
		}
	}
	return latencies, nil
}

// scanRange walks up to limit entries forward from target, the workload's
// stand-in for a reporting-style range query.
func scanRange(tree *btree.BTree, target []byte, limit int) error {
	it, err := tree.Begin(target)
	if err != nil {
		return err
	}
	defer it.Close()
	for i := 0; i < limit && !it.IsEnd(); i++ {
		if more, err := it.Next(); err != nil {
			return err
		} else if !more {
			break
		}
	}
	return nil
}
