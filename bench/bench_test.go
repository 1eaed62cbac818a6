package bench

import (
	"os"
	"testing"

	ecsruntime "github.com/TheBitDrifter/ecsruntime"
	"github.com/pkg/profile"
)

type Position struct {
	X float64
	Y float64
}

type Velocity struct {
	X float64
	Y float64
}

const (
	nPosVel = 9000
	nPos    = 1000
)

// TestMain optionally wraps the benchmark run in a CPU profile:
//
//	ECSRUNTIME_PROFILE=1 go test -bench=. ./bench
//	go tool pprof -http=":8000" cpu.pprof
func TestMain(m *testing.M) {
	var p interface{ Stop() }
	if os.Getenv("ECSRUNTIME_PROFILE") != "" {
		p = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	}
	code := m.Run()
	if p != nil {
		p.Stop()
	}
	os.Exit(code)
}

func seedWorld(b *testing.B) (*ecsruntime.World, ecsruntime.AccessibleComponent[Position], ecsruntime.AccessibleComponent[Velocity]) {
	b.Helper()
	w := ecsruntime.NewWorld()
	position := ecsruntime.NewComponent[Position]()
	velocity := ecsruntime.NewComponent[Velocity]()
	for i := 0; i < nPosVel; i++ {
		if _, err := w.CreateEntity(position, velocity); err != nil {
			b.Fatal(err)
		}
	}
	for i := 0; i < nPos; i++ {
		if _, err := w.CreateEntity(position); err != nil {
			b.Fatal(err)
		}
	}
	return w, position, velocity
}

func BenchmarkIterCursorGet(b *testing.B) {
	b.StopTimer()
	w, position, velocity := seedWorld(b)
	filter := w.NewFilter().All(w, position, velocity)
	query := w.Query(filter)
	cursor := ecsruntime.NewCursor(query)
	b.StartTimer()

	for i := 0; i < b.N; i++ {
		for cursor.Next() {
			pos := position.GetFromCursor(cursor)
			vel := velocity.GetFromCursor(cursor)

			pos.X += vel.X
			pos.Y += vel.Y
		}
	}
}

func BenchmarkQueryForEach(b *testing.B) {
	b.StopTimer()
	w, position, velocity := seedWorld(b)
	filter := w.NewFilter().All(w, position, velocity)
	query := w.Query(filter)
	b.StartTimer()

	for i := 0; i < b.N; i++ {
		query.ForEach(func(e ecsruntime.Entity) {
			pos := position.GetFromEntity(e)
			vel := velocity.GetFromEntity(e)
			pos.X += vel.X
			pos.Y += vel.Y
		})
	}
}

func BenchmarkWorldMigration(b *testing.B) {
	b.StopTimer()
	w := ecsruntime.NewWorld()
	position := ecsruntime.NewComponent[Position]()
	velocity := ecsruntime.NewComponent[Velocity]()
	handles := make([]ecsruntime.EntityHandle, 0, 1000)
	for i := 0; i < 1000; i++ {
		en, err := w.CreateEntity(position)
		if err != nil {
			b.Fatal(err)
		}
		handles = append(handles, en.Handle())
	}
	b.StartTimer()

	for i := 0; i < b.N; i++ {
		for _, h := range handles {
			w.AddComponent(h, velocity, nil)
		}
		for _, h := range handles {
			w.RemoveComponent(h, velocity)
		}
	}
}

func BenchmarkEntityCreateDestroy(b *testing.B) {
	w := ecsruntime.NewWorld()
	position := ecsruntime.NewComponent[Position]()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		en, err := w.CreateEntity(position)
		if err != nil {
			b.Fatal(err)
		}
		w.DestroyEntity(en.Handle())
	}
}
