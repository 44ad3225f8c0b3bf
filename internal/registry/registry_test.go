package registry_test

import (
	"strconv"
	"testing"

	"github.com/e1732a364fed/edgebridge/internal/registry"
)

func TestGetOrCreateCachesByFingerprint(t *testing.T) {
	r := registry.New()
	builds := 0
	build := func() *registry.Instance {
		builds++
		return &registry.Instance{}
	}

	first := r.GetOrCreate("fp-a", build)
	second := r.GetOrCreate("fp-a", build)

	if first != second {
		t.Fatal("same fingerprint must return the same Instance")
	}
	if builds != 1 {
		t.Fatalf("build called %d times, want 1", builds)
	}
}

func TestGetOrCreateDistinctFingerprintsBuildSeparately(t *testing.T) {
	r := registry.New()
	a := r.GetOrCreate("fp-a", func() *registry.Instance { return &registry.Instance{} })
	b := r.GetOrCreate("fp-b", func() *registry.Instance { return &registry.Instance{} })

	if a == b {
		t.Fatal("distinct fingerprints must not share an Instance")
	}
}

func TestGetOrCreateClearsWholeMapPastCap(t *testing.T) {
	r := registry.New()
	for i := 0; i < 32; i++ {
		r.GetOrCreate("fp-"+strconv.Itoa(i), func() *registry.Instance { return &registry.Instance{} })
	}
	firstZero := r.GetOrCreate("fp-0", func() *registry.Instance { return &registry.Instance{} })

	// the 33rd distinct fingerprint pushes the map past its cap,
	// clearing every prior entry including fp-0.
	r.GetOrCreate("fp-32", func() *registry.Instance { return &registry.Instance{} })

	rebuiltZero := r.GetOrCreate("fp-0", func() *registry.Instance { return &registry.Instance{} })
	if firstZero == rebuiltZero {
		t.Fatal("fp-0 should have been evicted by the wholesale clear and rebuilt as a new Instance")
	}
}
