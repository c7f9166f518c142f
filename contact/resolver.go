package contact

import (
	"log/slog"
	m "math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	tm "pfeifer.dev/trackd/math"
	"pfeifer.dev/trackd/physics"
)

type Params struct {
	Restitution float64 `json:"restitution"`
	// Cooldown in seconds before a body takes part in another collision.
	Cooldown float64 `json:"cooldown"`
	// ImpulseCap limits the impulse to this many N·s per kg of the lighter
	// body.
	ImpulseCap     float64 `json:"impulse_cap"`
	MinImpactSpeed float64 `json:"min_impact_speed"`
	// SpinTorque is the yaw torque per N·s of impulse on glancing hits.
	SpinTorque float64 `json:"spin_torque"`
}

func DefaultParams() Params {
	return Params{
		Restitution:    0.4,
		Cooldown:       0.2,
		ImpulseCap:     12,
		MinImpactSpeed: 0.5,
		SpinTorque:     0.6,
	}
}

func (p Params) Validate() error {
	if p.Restitution < 0 || p.Restitution > 1 {
		return errors.Errorf("restitution must be within [0, 1], got %f", p.Restitution)
	}
	if p.Cooldown < 0 || p.ImpulseCap <= 0 || p.MinImpactSpeed < 0 {
		return errors.New("invalid collision limits")
	}
	return nil
}

// Response is the outcome of one resolved collision. Body A receives
// -Impulse and body B receives +Impulse; both receive the same Torque.
type Response struct {
	A, B    physics.BodyID
	Impulse mgl64.Vec3
	Torque  mgl64.Vec3
}

// Resolver turns contact events into equal and opposite impulses.
type Resolver struct {
	params    Params
	cooldowns map[physics.BodyID]float64
}

func NewResolver(p Params) (*Resolver, error) {
	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid contact params")
	}
	return &Resolver{params: p, cooldowns: map[physics.BodyID]float64{}}, nil
}

func (r *Resolver) Params() Params {
	return r.params
}

// Advance counts cooldowns down by dt.
func (r *Resolver) Advance(dt float64) {
	for id, left := range r.cooldowns {
		left -= dt
		if left <= 0 {
			delete(r.cooldowns, id)
		} else {
			r.cooldowns[id] = left
		}
	}
}

func (r *Resolver) CoolingDown(id physics.BodyID) bool {
	return r.cooldowns[id] > 0
}

// Forget drops the cooldown of a removed or respawned body.
func (r *Resolver) Forget(id physics.BodyID) {
	delete(r.cooldowns, id)
}

// Process resolves every drained event in order.
func (r *Resolver) Process(world physics.World, events []physics.Contact) []Response {
	out := []Response{}
	for _, ev := range events {
		if res, ok := r.Resolve(world, ev); ok {
			out = append(out, res)
		}
	}
	return out
}

// Resolve applies the restitution impulse for one contact. It reports false
// when the event is ignored.
func (r *Resolver) Resolve(world physics.World, ev physics.Contact) (Response, bool) {
	if ev.A == ev.B || r.CoolingDown(ev.A) || r.CoolingDown(ev.B) {
		return Response{}, false
	}
	posA, okA := world.Translation(ev.A)
	posB, okB := world.Translation(ev.B)
	velA, okVA := world.LinearVelocity(ev.A)
	velB, okVB := world.LinearVelocity(ev.B)
	massA, okMA := world.Mass(ev.A)
	massB, okMB := world.Mass(ev.B)
	if !(okA && okB && okVA && okVB && okMA && okMB) || massA <= 0 || massB <= 0 {
		slog.Debug("ignoring contact with stale body", "a", ev.A, "b", ev.B)
		return Response{}, false
	}

	normal := tm.Planar(posB.Sub(posA))
	if normal.Len() < tm.EPSILON {
		normal = tm.Planar(ev.Normal)
	}
	if normal.Len() < tm.EPSILON {
		return Response{}, false
	}
	normal = normal.Normalize()

	relVel := tm.Planar(velB.Sub(velA))
	relVn := relVel.Dot(normal)
	if relVn > 0 || m.Abs(relVn) < r.params.MinImpactSpeed {
		return Response{}, false
	}

	j := -(1 + r.params.Restitution) * relVn / (1/massA + 1/massB)
	j = min(j, r.params.ImpulseCap*min(massA, massB))
	impulse := normal.Mul(j)

	world.ApplyImpulse(ev.A, impulse.Mul(-1))
	world.ApplyImpulse(ev.B, impulse)

	var torque mgl64.Vec3
	cross := normal.Cross(relVel).Y()
	if m.Abs(cross) > 1e-3*relVel.Len() {
		torque = mgl64.Vec3{0, r.params.SpinTorque * j * tm.Sign(cross), 0}
		world.ApplyTorque(ev.A, torque)
		world.ApplyTorque(ev.B, torque)
	}

	r.cooldowns[ev.A] = r.params.Cooldown
	r.cooldowns[ev.B] = r.params.Cooldown

	slog.Debug("collision", "a", ev.A, "b", ev.B, "impulse", j, "rel_vn", relVn)
	return Response{A: ev.A, B: ev.B, Impulse: impulse, Torque: torque}, true
}
