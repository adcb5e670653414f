// Package silverwatch classifies water colour samples against a reference
// palette of silver-ion discoloration levels.
//
// Quick start:
//
//	w, err := silverwatch.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ev := w.Classify(silverwatch.Color{R: 0, G: 71, B: 119})
//	fmt.Println(ev.Text) // Regal Blue - Level 4
//
// A Watcher is immutable after New and safe for concurrent use.
package silverwatch
