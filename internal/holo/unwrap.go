package holo

import (
	"container/heap"
	"math"
)

// UnwrapPhase removes 2π ambiguities from a wrapped phase plane in place,
// using a quality-guided flood from the center pixel. The flood front always
// advances through the highest-quality unvisited pixel, so low-amplitude
// noise regions are unwrapped last and never sit on the path between the
// aperture center and an illuminated pixel. Each pixel is adjusted by the
// integer multiple of 2π that brings it closest to the neighbour it was
// reached from.
//
// quality is typically the amplitude plane; it must have the same
// dimensions as phase. Ties are broken by pixel index, so the result is
// deterministic.
func UnwrapPhase(phase, quality [][]float64) {
	n := len(phase)
	if n == 0 {
		return
	}
	half := n / 2
	visited := make([]bool, n*n)
	queued := make([]bool, n*n)

	pq := &pixelQueue{}
	heap.Init(pq)
	push := func(x, y int) {
		idx := y*n + x
		if queued[idx] {
			return
		}
		queued[idx] = true
		heap.Push(pq, pixel{x: x, y: y, q: quality[y][x], idx: idx})
	}

	visited[half*n+half] = true
	queued[half*n+half] = true
	for _, d := range neighbours {
		push(half+d.x, half+d.y)
	}

	for pq.Len() > 0 {
		p := heap.Pop(pq).(pixel)
		// Anchor to the best already-unwrapped neighbour.
		bestQ := math.Inf(-1)
		ref := 0.0
		for _, d := range neighbours {
			nx, ny := p.x+d.x, p.y+d.y
			if nx < 0 || nx >= n || ny < 0 || ny >= n || !visited[ny*n+nx] {
				continue
			}
			if quality[ny][nx] > bestQ {
				bestQ = quality[ny][nx]
				ref = phase[ny][nx]
			}
		}
		phase[p.y][p.x] -= 2 * math.Pi * math.Round((phase[p.y][p.x]-ref)/(2*math.Pi))
		visited[p.idx] = true

		for _, d := range neighbours {
			nx, ny := p.x+d.x, p.y+d.y
			if nx < 0 || nx >= n || ny < 0 || ny >= n || visited[ny*n+nx] {
				continue
			}
			push(nx, ny)
		}
	}
}

var neighbours = [4]struct{ x, y int }{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}

type pixel struct {
	x, y int
	q    float64
	idx  int
}

// pixelQueue is a max-heap on quality with index-order tie-break.
type pixelQueue []pixel

func (pq pixelQueue) Len() int { return len(pq) }
func (pq pixelQueue) Less(i, j int) bool {
	if pq[i].q != pq[j].q {
		return pq[i].q > pq[j].q
	}
	return pq[i].idx < pq[j].idx
}
func (pq pixelQueue) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

func (pq *pixelQueue) Push(v interface{}) { *pq = append(*pq, v.(pixel)) }
func (pq *pixelQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	v := old[n-1]
	*pq = old[:n-1]
	return v
}
