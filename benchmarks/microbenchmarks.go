package benchmarks

import (
	"github.com/sarchlab/rv5sim/emu"
	"github.com/sarchlab/rv5sim/insts"
)

// Registers used by the benchmark programs.
const (
	ra = 1
	t0 = 5
	t1 = 6
	t2 = 7
	t3 = 8
	t4 = 9
	a0 = 10
)

// GetMicrobenchmarks returns the standard set of microbenchmarks.
// Each benchmark targets a specific pipeline characteristic.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		memorySequential(),
		functionCalls(),
		branchTaken(),
		mixedOperations(),
		vectorSum(),
		byteCopy(),
	}
}

// GetCoreBenchmarks returns a minimal set of 3 core benchmarks for quick validation.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		branchTaken(),
		vectorSum(),
		functionCalls(),
	}
}

// 1. Arithmetic Sequential - independent operations, no hazards
func arithmeticSequential() Benchmark {
	var prog []uint32
	for i := 0; i < 4; i++ {
		for rd := uint8(t0); rd <= t4; rd++ {
			prog = append(prog, insts.EncodeADDI(rd, rd, 1))
		}
	}
	prog = append(prog,
		insts.EncodeADD(a0, t0, t4),
		insts.EncodeRET(),
	)

	return Benchmark{
		Name:        "arithmetic_sequential",
		Description: "20 independent ADDIs over 5 registers - measures ALU throughput",
		Program:     prog,
		Expected:    8,
	}
}

// 2. Dependency Chain - every instruction consumes the previous result
func dependencyChain() Benchmark {
	prog := make([]uint32, 0, 21)
	for i := 0; i < 20; i++ {
		prog = append(prog, insts.EncodeADDI(a0, a0, 1))
	}
	prog = append(prog, insts.EncodeRET())

	return Benchmark{
		Name:        "dependency_chain",
		Description: "20 dependent ADDIs (a0 = a0 + 1) - measures forwarding",
		Program:     prog,
		Expected:    20,
	}
}

// 3. Memory Sequential - stores then dependent loads
func memorySequential() Benchmark {
	prog := []uint32{insts.EncodeADDI(t1, 0, 0x100)}
	for i := int32(0); i < 5; i++ {
		prog = append(prog,
			insts.EncodeADDI(t0, 0, i+1),
			insts.EncodeSW(t0, t1, 4*i),
		)
	}
	for i := int32(0); i < 5; i++ {
		prog = append(prog,
			insts.EncodeLW(t2, t1, 4*i),
			insts.EncodeADD(a0, a0, t2),
		)
	}
	prog = append(prog, insts.EncodeRET())

	return Benchmark{
		Name:        "memory_sequential",
		Description: "5 stores followed by 5 load-use pairs - measures load-use stalls",
		Program:     prog,
		Expected:    15,
	}
}

// 4. Function Calls - JAL/JALR pairs
func functionCalls() Benchmark {
	return Benchmark{
		Name:        "function_calls",
		Description: "3 calls to a leaf function - measures jump redirects",
		Program: []uint32{
			insts.EncodeADDI(t0, ra, 0), // 0: save return address
			insts.EncodeJAL(ra, 16),     // 4: call 20
			insts.EncodeJAL(ra, 12),     // 8: call 20
			insts.EncodeJAL(ra, 8),      // 12: call 20
			insts.EncodeJALR(0, t0, 0),  // 16: return
			insts.EncodeADDI(a0, a0, 1), // 20: leaf
			insts.EncodeRET(),           // 24
		},
		Expected: 3,
	}
}

// 5. Branch Taken - a counted loop
func branchTaken() Benchmark {
	return Benchmark{
		Name:        "branch_taken",
		Description: "10-iteration loop - measures branch stalls and squashes",
		Program: []uint32{
			insts.EncodeADDI(t0, 0, 10),  // 0
			insts.EncodeADDI(a0, a0, 1),  // 4: loop
			insts.EncodeADDI(t0, t0, -1), // 8
			insts.EncodeBNE(t0, 0, -8),   // 12
			insts.EncodeRET(),            // 16
		},
		Expected: 10,
	}
}

// 6. Mixed Operations - upper immediates, shifts and logic
func mixedOperations() Benchmark {
	return Benchmark{
		Name:        "mixed_operations",
		Description: "LUI, shifts, logic and SUB in a dependent chain",
		Program: []uint32{
			insts.Encode(insts.OpLUI, t0, 0, 0, 0x12345000),
			insts.Encode(insts.OpSRLI, t1, t0, 0, 12),
			insts.Encode(insts.OpANDI, t2, t1, 0, 0xFF),
			insts.Encode(insts.OpSLLI, t3, t2, 0, 2),
			insts.EncodeSUB(t4, t3, t2),
			insts.Encode(insts.OpXORI, a0, t4, 0, 15),
			insts.EncodeRET(),
		},
		Expected: 192,
	}
}

var vectorData = []int32{3, 1, 4, 1, 5, 9, 2, 6}

// 7. Vector Sum - a load-use loop over an array in memory
func vectorSum() Benchmark {
	return Benchmark{
		Name:        "vector_sum",
		Description: "Sums an 8-element array - measures load-use stalls in a loop",
		Setup: func(_ *emu.RegFile, memory *emu.Memory) {
			for i, v := range vectorData {
				memory.Write32(0x200+uint32(4*i), uint32(v))
			}
		},
		Program: []uint32{
			insts.EncodeADDI(t1, 0, 0x200),                  // 0
			insts.EncodeADDI(t0, 0, int32(len(vectorData))), // 4
			insts.EncodeLW(t2, t1, 0),                       // 8: loop
			insts.EncodeADD(a0, a0, t2),                     // 12
			insts.EncodeADDI(t1, t1, 4),                     // 16
			insts.EncodeADDI(t0, t0, -1),                    // 20
			insts.EncodeBNE(t0, 0, -16),                     // 24
			insts.EncodeRET(),                               // 28
		},
		Expected: 31,
	}
}

// 8. Byte Copy - byte loads feeding stores
func byteCopy() Benchmark {
	return Benchmark{
		Name:        "byte_copy",
		Description: "Copies a word byte by byte - measures store-data forwarding",
		Setup: func(_ *emu.RegFile, memory *emu.Memory) {
			memory.Write32(0x300, 0x11223344)
		},
		Program: []uint32{
			insts.EncodeADDI(t1, 0, 0x300),          // 0
			insts.EncodeADDI(t3, 0, 0x310),          // 4
			insts.EncodeADDI(t0, 0, 4),              // 8
			insts.Encode(insts.OpLBU, t2, t1, 0, 0), // 12: loop
			insts.Encode(insts.OpSB, 0, t3, t2, 0),  // 16
			insts.EncodeADDI(t1, t1, 1),             // 20
			insts.EncodeADDI(t3, t3, 1),             // 24
			insts.EncodeADDI(t0, t0, -1),            // 28
			insts.EncodeBNE(t0, 0, -20),             // 32
			insts.EncodeLW(a0, 0, 0x310),            // 36
			insts.EncodeRET(),                       // 40
		},
		Expected: 0x11223344,
	}
}
