// Copyright 2024 Josh Deprez
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dialogue

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Ray is a pointer ray in world space, such as one cast from the camera
// through the mouse position.
type Ray struct {
	Origin, Direction mgl64.Vec3
}

// CardPlane is the placement of a rendered card. Cards face +Z in their own
// frame, with +X to the right and +Y up.
type CardPlane struct {
	Handle      Handle
	Center      mgl64.Vec3
	Orientation mgl64.Quat
	// HalfExtent is half the card's width and height.
	HalfExtent mgl64.Vec2
}

const parallelEpsilon = 1e-9

// Hit intersects the ray with the card. If the ray hits the card's face in
// front of the origin, it returns the distance of the hit from the card's
// left edge.
func (p CardPlane) Hit(ray Ray) (edgeDist float64, ok bool) {
	normal := p.Orientation.Rotate(mgl64.Vec3{0, 0, 1})
	denom := ray.Direction.Dot(normal)
	if math.Abs(denom) < parallelEpsilon {
		return 0, false
	}
	t := p.Center.Sub(ray.Origin).Dot(normal) / denom
	if t < 0 {
		return 0, false
	}
	local := ray.Origin.Add(ray.Direction.Mul(t)).Sub(p.Center)
	x := local.Dot(p.Orientation.Rotate(mgl64.Vec3{1, 0, 0}))
	y := local.Dot(p.Orientation.Rotate(mgl64.Vec3{0, 1, 0}))
	if math.Abs(x) > p.HalfExtent[0] || math.Abs(y) > p.HalfExtent[1] {
		return 0, false
	}
	return x + p.HalfExtent[0], true
}

// Pick finds the card under the pointer and updates the session's Selected
// and Previous. Where cards overlap, the one whose left edge is nearest the
// hit wins; ties go to the earlier plane. With no hit, both are cleared.
func Pick(s *Session, ray Ray, planes []CardPlane) Handle {
	best, bestDist := NoHandle, math.Inf(1)
	for _, p := range planes {
		if p.Handle == NoHandle {
			continue
		}
		if d, ok := p.Hit(ray); ok && d < bestDist {
			best, bestDist = p.Handle, d
		}
	}
	if best == NoHandle {
		s.clearPointer()
		return NoHandle
	}
	s.Previous, s.Selected = s.Selected, best
	return best
}
