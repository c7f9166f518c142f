package physics

import (
	"log/slog"
	m "math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	tm "pfeifer.dev/trackd/math"
)

const SEPARATION_MARGIN = 0.0625

type BodyDesc struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Mass     float64
	// HalfExtents of the collision box in body space, X forward.
	HalfExtents mgl64.Vec3
	// Radius of the planar footprint used for contacts and ray hits.
	Radius float64
	// LockTilt restricts rotation to the vertical axis.
	LockTilt bool
}

type body struct {
	id          BodyID
	pos         mgl64.Vec3
	rot         mgl64.Quat
	vel         mgl64.Vec3
	angVel      mgl64.Vec3
	mass        float64
	inertia     mgl64.Vec3
	force       mgl64.Vec3
	torque      mgl64.Vec3
	halfExtents mgl64.Vec3
	radius      float64
	lockTilt    bool
}

// Plane is an infinite ground surface through Point.
type Plane struct {
	Point  mgl64.Vec3
	Normal mgl64.Vec3
}

// HeightAt returns the plane height below (x, z).
func (p Plane) HeightAt(x, z float64) float64 {
	n := p.Normal
	if m.Abs(n.Y()) < tm.EPSILON {
		return p.Point.Y()
	}
	return p.Point.Y() - (n.X()*(x-p.Point.X())+n.Z()*(z-p.Point.Z()))/n.Y()
}

// Space is an in-memory World: dynamic bodies with circular footprints, static
// axis aligned walls and an optional ground plane.
type Space struct {
	Gravity mgl64.Vec3

	bodies   map[BodyID]*body
	order    []BodyID
	nextID   BodyID
	walls    []tm.Box
	ground   *Plane
	sink     ContactSink
	touching map[[2]BodyID]bool
}

func NewSpace() *Space {
	return &Space{
		Gravity:  mgl64.Vec3{0, -tm.GRAVITY, 0},
		bodies:   map[BodyID]*body{},
		touching: map[[2]BodyID]bool{},
	}
}

func (s *Space) SetContactSink(sink ContactSink) {
	s.sink = sink
}

func (s *Space) SetGround(p Plane) {
	p.Normal = p.Normal.Normalize()
	s.ground = &p
}

func (s *Space) Ground() (Plane, bool) {
	if s.ground == nil {
		return Plane{}, false
	}
	return *s.ground, true
}

func (s *Space) AddWall(b tm.Box) {
	s.walls = append(s.walls, b)
}

func (s *Space) Walls() []tm.Box {
	return s.walls
}

func (s *Space) AddBody(desc BodyDesc) (BodyID, error) {
	if desc.Mass <= 0 || !tm.Finite(desc.Mass) {
		return NoBody, errors.Errorf("body mass must be positive, got %f", desc.Mass)
	}
	if desc.Radius <= 0 {
		return NoBody, errors.Errorf("body radius must be positive, got %f", desc.Radius)
	}
	rot := desc.Rotation
	if rot.Len() < tm.EPSILON {
		rot = mgl64.QuatIdent()
	}
	l := 2 * desc.HalfExtents.X()
	h := 2 * desc.HalfExtents.Y()
	w := 2 * desc.HalfExtents.Z()
	inertia := mgl64.Vec3{
		desc.Mass * (h*h + w*w) / 12,
		desc.Mass * (l*l + w*w) / 12,
		desc.Mass * (l*l + h*h) / 12,
	}
	for i := range 3 {
		if inertia[i] < tm.EPSILON {
			inertia[i] = desc.Mass * desc.Radius * desc.Radius / 2
		}
	}

	s.nextID++
	b := &body{
		id:          s.nextID,
		pos:         desc.Position,
		rot:         rot.Normalize(),
		mass:        desc.Mass,
		inertia:     inertia,
		halfExtents: desc.HalfExtents,
		radius:      desc.Radius,
		lockTilt:    desc.LockTilt,
	}
	s.bodies[b.id] = b
	s.order = append(s.order, b.id)
	return b.id, nil
}

func (s *Space) RemoveBody(id BodyID) {
	if _, ok := s.bodies[id]; !ok {
		return
	}
	delete(s.bodies, id)
	for i, other := range s.order {
		if other == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	for pair := range s.touching {
		if pair[0] == id || pair[1] == id {
			delete(s.touching, pair)
		}
	}
}

func (s *Space) Bodies() []BodyID {
	out := make([]BodyID, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Space) ApplyForce(id BodyID, f mgl64.Vec3) {
	if b, ok := s.bodies[id]; ok {
		b.force = b.force.Add(f)
	}
}

// ApplyImpulse changes the velocity immediately.
func (s *Space) ApplyImpulse(id BodyID, j mgl64.Vec3) {
	if b, ok := s.bodies[id]; ok {
		b.vel = b.vel.Add(j.Mul(1 / b.mass))
	}
}

func (s *Space) ApplyTorque(id BodyID, tau mgl64.Vec3) {
	if b, ok := s.bodies[id]; ok {
		b.torque = b.torque.Add(tau)
	}
}

func (s *Space) SetLinearVelocity(id BodyID, v mgl64.Vec3) {
	if b, ok := s.bodies[id]; ok {
		b.vel = v
	}
}

func (s *Space) SetAngularVelocity(id BodyID, w mgl64.Vec3) {
	if b, ok := s.bodies[id]; ok {
		if b.lockTilt {
			w = mgl64.Vec3{0, w.Y(), 0}
		}
		b.angVel = w
	}
}

func (s *Space) SetTranslation(id BodyID, p mgl64.Vec3) {
	if b, ok := s.bodies[id]; ok {
		b.pos = p
	}
}

func (s *Space) SetRotation(id BodyID, q mgl64.Quat) {
	if b, ok := s.bodies[id]; ok && q.Len() > tm.EPSILON {
		b.rot = q.Normalize()
	}
}

func (s *Space) Translation(id BodyID) (mgl64.Vec3, bool) {
	b, ok := s.bodies[id]
	if !ok {
		return mgl64.Vec3{}, false
	}
	return b.pos, true
}

func (s *Space) Rotation(id BodyID) (mgl64.Quat, bool) {
	b, ok := s.bodies[id]
	if !ok {
		return mgl64.QuatIdent(), false
	}
	return b.rot, true
}

func (s *Space) LinearVelocity(id BodyID) (mgl64.Vec3, bool) {
	b, ok := s.bodies[id]
	if !ok {
		return mgl64.Vec3{}, false
	}
	return b.vel, true
}

func (s *Space) AngularVelocity(id BodyID) (mgl64.Vec3, bool) {
	b, ok := s.bodies[id]
	if !ok {
		return mgl64.Vec3{}, false
	}
	return b.angVel, true
}

func (s *Space) Mass(id BodyID) (float64, bool) {
	b, ok := s.bodies[id]
	if !ok {
		return 0, false
	}
	return b.mass, true
}

// Step integrates all bodies with semi-implicit Euler, resolves ground and
// wall penetration, separates overlapping bodies and reports new contacts.
func (s *Space) Step(dt float64) {
	if dt <= 0 {
		return
	}
	for _, id := range s.order {
		s.integrate(s.bodies[id], dt)
	}
	for _, id := range s.order {
		b := s.bodies[id]
		s.supportOnGround(b)
		s.pushOutOfWalls(b)
	}
	s.resolveBodyContacts()
}

func (s *Space) integrate(b *body, dt float64) {
	accel := b.force.Mul(1 / b.mass).Add(s.Gravity)
	b.vel = b.vel.Add(accel.Mul(dt))
	b.pos = b.pos.Add(b.vel.Mul(dt))

	alpha := mgl64.Vec3{
		b.torque.X() / b.inertia.X(),
		b.torque.Y() / b.inertia.Y(),
		b.torque.Z() / b.inertia.Z(),
	}
	if b.lockTilt {
		alpha = mgl64.Vec3{0, alpha.Y(), 0}
	}
	b.angVel = b.angVel.Add(alpha.Mul(dt))
	if b.lockTilt {
		b.angVel = mgl64.Vec3{0, b.angVel.Y(), 0}
	}
	if !tm.Finite(b.angVel.X(), b.angVel.Y(), b.angVel.Z()) {
		slog.Warn("body spin diverged, zeroing angular velocity", "body", b.id)
		b.angVel = mgl64.Vec3{}
	}

	if angle := b.angVel.Len() * dt; angle > 0 {
		spin := mgl64.QuatRotate(angle, b.angVel.Normalize())
		b.rot = spin.Mul(b.rot).Normalize()
	}

	b.force = mgl64.Vec3{}
	b.torque = mgl64.Vec3{}

	if !tm.Finite(b.pos.X(), b.pos.Y(), b.pos.Z(), b.vel.X(), b.vel.Y(), b.vel.Z()) {
		slog.Warn("body state diverged, zeroing motion", "body", b.id)
		b.vel = mgl64.Vec3{}
		b.angVel = mgl64.Vec3{}
		b.pos = mgl64.Vec3{}
	}
	if !tm.Finite(b.rot.W, b.rot.V.X(), b.rot.V.Y(), b.rot.V.Z()) {
		b.rot = mgl64.QuatIdent()
	}
}

func (s *Space) supportOnGround(b *body) {
	if s.ground == nil {
		return
	}
	floor := s.ground.HeightAt(b.pos.X(), b.pos.Z()) + b.halfExtents.Y()
	if b.pos.Y() < floor {
		b.pos[1] = floor
		if b.vel.Y() < 0 {
			b.vel[1] = 0
		}
	}
}

// pushOutOfWalls treats the body as a circle in the ground plane and removes
// the velocity component driving it into a wall.
func (s *Space) pushOutOfWalls(b *body) {
	for i := range s.walls {
		w := &s.walls[i]
		if b.pos.Y()+b.halfExtents.Y() < w.Min.Y() || b.pos.Y()-b.halfExtents.Y() > w.Max.Y() {
			continue
		}
		flat := mgl64.Vec3{b.pos.X(), w.Center().Y(), b.pos.Z()}
		closest := w.ClosestPoint(flat)
		delta := tm.Planar(flat.Sub(closest))
		dist := delta.Len()

		var normal mgl64.Vec3
		var depth float64
		switch {
		case dist >= b.radius:
			continue
		case dist > tm.EPSILON:
			normal = delta.Mul(1 / dist)
			depth = b.radius - dist
		default:
			normal, depth = exitAxis(w, flat)
			depth += b.radius
		}
		b.pos = b.pos.Add(normal.Mul(depth))
		if vn := b.vel.Dot(normal); vn < 0 {
			b.vel = b.vel.Sub(normal.Mul(vn))
		}
	}
}

// exitAxis picks the planar face of w closest to p, for points inside it.
func exitAxis(w *tm.Box, p mgl64.Vec3) (mgl64.Vec3, float64) {
	best := m.Inf(1)
	var normal mgl64.Vec3
	for _, axis := range []int{0, 2} {
		if d := p[axis] - w.Min[axis]; d < best {
			best = d
			normal = mgl64.Vec3{}
			normal[axis] = -1
		}
		if d := w.Max[axis] - p[axis]; d < best {
			best = d
			normal = mgl64.Vec3{}
			normal[axis] = 1
		}
	}
	return normal, best
}

func (s *Space) resolveBodyContacts() {
	for i, idA := range s.order {
		for _, idB := range s.order[i+1:] {
			a, b := s.bodies[idA], s.bodies[idB]
			pair := [2]BodyID{idA, idB}
			delta := tm.Planar(b.pos.Sub(a.pos))
			dist := delta.Len()
			minDist := a.radius + b.radius
			if dist >= minDist+2*SEPARATION_MARGIN {
				delete(s.touching, pair)
				continue
			}
			if dist >= minDist {
				continue
			}

			var normal mgl64.Vec3
			if dist > tm.EPSILON {
				normal = delta.Mul(1 / dist)
			} else {
				normal = tm.Forward(tm.Yaw(a.rot))
			}

			if !s.touching[pair] {
				s.touching[pair] = true
				if s.sink != nil {
					s.sink.Push(Contact{A: idA, B: idB, Normal: normal, Point: a.pos.Add(normal.Mul(a.radius))})
				}
			}

			overlap := minDist - dist
			total := a.mass + b.mass
			a.pos = a.pos.Sub(normal.Mul((overlap + SEPARATION_MARGIN) * b.mass / total))
			b.pos = b.pos.Add(normal.Mul((overlap + SEPARATION_MARGIN) * a.mass / total))
		}
	}
}
