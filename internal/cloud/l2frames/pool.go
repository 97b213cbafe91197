package l2frames

import "sync"

// Slices are sized for a typical depth camera frame (~300k points).
const (
	pooledCapacity = 320 * 240 * 4
	maxPooled      = 2 * pooledCapacity
)

var positionPool = sync.Pool{
	New: func() interface{} {
		return make([]Vector3, 0, pooledCapacity)
	},
}

var colorPool = sync.Pool{
	New: func() interface{} {
		return make([]Color, 0, pooledCapacity)
	},
}

func getPositions(n int) []Vector3 {
	s := positionPool.Get().([]Vector3)
	if cap(s) < n {
		positionPool.Put(s)
		return make([]Vector3, n)
	}
	return s[:n]
}

func putPositions(s []Vector3) {
	if cap(s) > 0 && cap(s) <= maxPooled {
		positionPool.Put(s[:0])
	}
}

func getColors(n int) []Color {
	s := colorPool.Get().([]Color)
	if cap(s) < n {
		colorPool.Put(s)
		return make([]Color, n)
	}
	return s[:n]
}

func putColors(s []Color) {
	if cap(s) > 0 && cap(s) <= maxPooled {
		colorPool.Put(s[:0])
	}
}
