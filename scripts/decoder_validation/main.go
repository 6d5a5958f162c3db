// Validate decoder allocation behavior and throughput
package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/sarchlab/x86dis/insts"
	"github.com/sarchlab/x86dis/stream"
)

var code = []byte{
	// PUSH RBP
	0x55,
	// MOV RBP, RSP
	0x48, 0x89, 0xE5,
	// SUB RSP, 0x20
	0x48, 0x83, 0xEC, 0x20,
	// MOV EAX, [RBX+RCX*4+0x8]
	0x8B, 0x44, 0x8B, 0x08,
	// MOV EAX, ES:[RBX]
	0x26, 0x8B, 0x03,
	// MOV [RBP-0x8], 0x1
	0xC7, 0x45, 0xF8, 0x01, 0x00, 0x00, 0x00,
	// REP MOVSQ
	0xF3, 0x48, 0xA5,
	// RET
	0xC3,
}

func decodeAll(decoder *insts.Decoder) int {
	r := stream.FromBytes(code, 0x1000)
	n := 0
	for r.Remaining() > 0 {
		if _, err := decoder.Decode(r); err != nil {
			panic(err)
		}
		n++
	}
	return n
}

func main() {
	decoder := insts.NewDecoder()

	// Warm up
	for i := 0; i < 1000; i++ {
		decodeAll(decoder)
	}

	runtime.GC()
	var m1, m2 runtime.MemStats
	runtime.ReadMemStats(&m1)

	start := time.Now()
	iterations := 100000
	totalDecodes := 0

	for i := 0; i < iterations; i++ {
		totalDecodes += decodeAll(decoder)
	}

	elapsed := time.Since(start)
	runtime.ReadMemStats(&m2)

	allocations := m2.Mallocs - m1.Mallocs
	allocatedBytes := m2.TotalAlloc - m1.TotalAlloc

	fmt.Printf("Decoder Validation Results:\n")
	fmt.Printf("===========================\n")
	fmt.Printf("Total decode operations: %d\n", totalDecodes)
	fmt.Printf("Time elapsed: %v\n", elapsed)
	fmt.Printf("Decodes per second: %.0f\n", float64(totalDecodes)/elapsed.Seconds())
	fmt.Printf("Allocations: %d\n", allocations)
	fmt.Printf("Allocated bytes: %d\n", allocatedBytes)
	fmt.Printf("Allocations per decode: %.3f\n", float64(allocations)/float64(totalDecodes))
	fmt.Printf("Bytes per decode: %.1f\n", float64(allocatedBytes)/float64(totalDecodes))

	// Each decode returns a fresh Instruction and operand slice.
	if perDecode := float64(allocations) / float64(totalDecodes); perDecode <= 8 {
		fmt.Printf("\nGOOD: %.2f allocations per decode\n", perDecode)
	} else {
		fmt.Printf("\nWARNING: high allocation rate (%.2f per decode)\n", perDecode)
	}
}
