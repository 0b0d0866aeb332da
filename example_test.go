package tracearena_test

import (
	"fmt"
	"log"

	"github.com/synaptik/tracearena"
)

// Example demonstrates booting a core, appending events and reading a window.
func Example() {
	core, err := tracearena.New(tracearena.Config{
		Neurons:      8,
		BaseCapacity: 4,
		SlackEvents:  32,
		TraceSize:    2,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer core.Close()

	// Times are strictly ascending per neuron.
	core.Append(3, 10, []byte{1, 0})
	core.Append(3, 14, []byte{2, 0})
	core.Append(3, 19, []byte{3, 0})

	// Everything neuron 3 fired after tick 12, plus the newest event before.
	w := core.Window(3, 12)
	fmt.Println("prev:", w.PrevTime)
	for w.Remaining > 0 {
		w.Next()
		fmt.Println("event:", w.PrevTime)
	}
	// Output:
	// prev: 10
	// event: 14
	// event: 19
}

// Example_maintenance demonstrates the recycling and compaction cadence.
func Example_maintenance() {
	core, err := tracearena.New(tracearena.Config{
		Neurons:      4,
		BaseCapacity: 4,
		SlackEvents:  64,
		TraceSize:    2,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer core.Close()

	for tick := uint32(1); tick <= 12; tick++ {
		core.Append(int(tick)%4, tick, []byte{byte(tick), 0})
	}

	// Recycle everything older than tick 9, then repack the arena.
	recycled := core.Scan(9)
	core.Compact()

	fmt.Println("recycled:", recycled)
	// Output: recycled: 8
}
