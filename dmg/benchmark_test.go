package dmg

import "testing"

func BenchmarkRunUntilFrame(b *testing.B) {
	e := New()
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		e.RunUntilFrame()
	}
}

func BenchmarkStep(b *testing.B) {
	e := New()
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		e.Step()
	}
}
