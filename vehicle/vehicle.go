package vehicle

import (
	"log/slog"
	m "math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	tm "pfeifer.dev/trackd/math"
	"pfeifer.dev/trackd/physics"
	"pfeifer.dev/trackd/pursuit"
	"pfeifer.dev/trackd/utils"
)

// Telemetry records what the last tick decided.
type Telemetry struct {
	Throttle      float64 `json:"throttle"`
	TargetYawRate float64 `json:"target_yaw_rate"`
	DriveForce    float64 `json:"drive_force"`
	BrakeForce    float64 `json:"brake_force"`
	LateralForce  float64 `json:"lateral_force"`
	YawTorque     float64 `json:"yaw_torque"`
	ForwardSpeed  float64 `json:"forward_speed"`
	Probes        Probes  `json:"probes"`
	Escaping      bool    `json:"escaping"`
	Respawned     bool    `json:"respawned"`
}

type Spawn struct {
	Position mgl64.Vec3 `json:"position"`
	Yaw      float64    `json:"yaw"`
}

type Vehicle struct {
	Name    string
	Body    physics.BodyID
	Spawn   Spawn
	Params  Params
	Control ControlSource

	Pursuit   pursuit.State
	Last      Telemetry
	Respawns  int
	LastDebug pursuit.Debug

	input        shaper
	prevYawRate  float64
	avoidTimer   float64
	avoidSign    float64
	frontBlocked utils.Tracker[bool]
}

// New validates the parameters and the body. The body's mass is read from the
// world.
func New(name string, world physics.World, body physics.BodyID, spawn Spawn, p Params, control ControlSource) (*Vehicle, error) {
	if err := p.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid params for vehicle %s", name)
	}
	mass, ok := world.Mass(body)
	if !ok {
		return nil, errors.Errorf("vehicle %s has no body", name)
	}
	if mass <= 0 || !tm.Finite(mass) {
		return nil, errors.Errorf("vehicle %s has invalid mass %f", name, mass)
	}
	if control == nil {
		control = &Manual{}
	}
	return &Vehicle{Name: name, Body: body, Spawn: spawn, Params: p, Control: control}, nil
}

// SetControl swaps the control source and clears the controller state.
func (v *Vehicle) SetControl(c ControlSource) {
	v.Control = c
	v.Pursuit.Reset()
	v.input.reset()
}

// SetKeys updates the manual keys. It is a no-op under autopilot.
func (v *Vehicle) SetKeys(k Keys) {
	if man, ok := v.Control.(*Manual); ok {
		man.Keys = k
	}
}

func (v *Vehicle) reset() {
	v.Pursuit.Reset()
	v.input.reset()
	v.prevYawRate = 0
	v.avoidTimer = 0
	v.avoidSign = 0
	v.frontBlocked.Reset()
}

// Respawn teleports the body back to its spawn point at rest.
func (v *Vehicle) Respawn(world physics.World) {
	world.SetTranslation(v.Body, v.Spawn.Position)
	world.SetRotation(v.Body, tm.YawRotation(v.Spawn.Yaw))
	world.SetLinearVelocity(v.Body, mgl64.Vec3{})
	world.SetAngularVelocity(v.Body, mgl64.Vec3{})
	v.reset()
	v.Respawns++
}

// Tick computes and applies this tick's forces, torques and velocity
// corrections. A missing body makes it a no-op.
func (v *Vehicle) Tick(dt float64, world physics.World) {
	if dt <= 0 {
		return
	}
	p := v.Params
	pos, ok := world.Translation(v.Body)
	if !ok {
		return
	}
	rot, _ := world.Rotation(v.Body)
	vel, _ := world.LinearVelocity(v.Body)
	angVel, _ := world.AngularVelocity(v.Body)
	mass, ok := world.Mass(v.Body)
	if !ok || mass <= 0 {
		return
	}
	tel := Telemetry{}

	if pos.Y() < p.FloorY {
		slog.Info("vehicle fell below floor, respawning", "vehicle", v.Name, "y", pos.Y())
		v.Respawn(world)
		tel.Respawned = true
		v.Last = tel
		return
	}

	yaw := tm.Yaw(rot)
	fwd := tm.Forward(yaw)
	right := tm.Right(yaw)
	massRatio := mass / p.BaselineMass
	traction := p.TractionLimit(mass)

	probes := probe(world, v.Body, pos, yaw, p)
	tel.Probes = probes
	vf := vel.Dot(fwd)

	v.frontBlocked.Update(probes.FrontBlocked)
	if v.frontBlocked.Rose(true) && vf > p.EscapeMinSpeed {
		world.ApplyImpulse(v.Body, fwd.Mul(-mass*p.EscapeImpulse))
		v.avoidSign = probes.avoidSign()
		v.avoidTimer = p.AvoidDuration
		vel, _ = world.LinearVelocity(v.Body)
		vf = vel.Dot(fwd)
		slog.Debug("front blocked, escaping", "vehicle", v.Name, "dist", probes.FrontDist, "sign", v.avoidSign)
	}
	if v.avoidTimer > 0 {
		v.avoidTimer = max(0, v.avoidTimer-dt)
		tel.Escaping = true
	}

	if probes.FrontBlocked && probes.FrontNear && vf > 0 {
		vel = vel.Sub(fwd.Mul(vf))
		vf = 0
		world.SetLinearVelocity(v.Body, vel)
	}

	speed := tm.PlanarLen(vel)
	in := v.resolveControl(pos, yaw, vel, vf, dt, probes)
	tel.Throttle = in.throttle
	tel.TargetYawRate = in.yawRate
	tel.ForwardSpeed = vf

	// anti-creep
	if in.idle && speed < p.AntiCreepSpeed {
		world.SetLinearVelocity(v.Body, mgl64.Vec3{0, vel.Y(), 0})
		if m.Abs(angVel.Y()) < p.AntiCreepYawRate {
			world.SetAngularVelocity(v.Body, mgl64.Vec3{})
			angVel = mgl64.Vec3{}
		}
		v.prevYawRate = angVel.Y()
		v.Last = tel
		return
	}

	steerLoad := lo.Clamp(m.Abs(in.yawRate)/p.MaxYawRate, 0, 1)

	// drive and brake
	brakeRequested := in.brake || (in.throttle < 0 && vf > 0.3 && !probes.FrontBlocked && !v.isManual())
	if brakeRequested && speed > 1e-3 {
		magnitude := traction * p.BrakeFraction
		if !in.brake {
			magnitude *= m.Abs(in.throttle)
		}
		magnitude = min(magnitude, traction)
		world.ApplyForce(v.Body, tm.Planar(vel).Mul(-magnitude/speed))
		tel.BrakeForce = magnitude
	} else if !in.brake {
		drive := p.EngineForce * in.throttle
		if drive < 0 && probes.FrontBlocked {
			drive *= p.ReverseBoost
		}
		drive = lo.Clamp(drive, -traction, traction)
		if drive > 0 && speed < p.SteerLoadSpeed {
			drive *= 1 - p.SteerLoadCut*steerLoad*(1-speed/p.SteerLoadSpeed)
		}
		if (drive > 0 && vf >= p.MaxSpeed) || (drive < 0 && -vf >= p.ReverseSpeed) {
			drive = 0
		}
		if drive > 0 && probes.FrontBlocked && probes.FrontNear {
			drive = 0
		}
		world.ApplyForce(v.Body, fwd.Mul(drive))
		tel.DriveForce = drive
	}

	// lateral grip
	if vl := vel.Dot(right); m.Abs(vl) > p.LateralThreshold {
		grip := p.LateralGrip * (1 + 0.8*steerLoad) / (1 + speed/p.MaxSpeed)
		lateral := lo.Clamp(-vl*mass*grip, -traction, traction)
		world.ApplyForce(v.Body, right.Mul(lateral))
		tel.LateralForce = lateral
	}

	tel.YawTorque = v.regulateYaw(in.yawRate, angVel.Y(), vf, speed, massRatio, dt)
	world.ApplyTorque(v.Body, mgl64.Vec3{0, tel.YawTorque, 0})

	// resistances
	if speed > 1e-3 {
		ratio := speed / p.MaxSpeed
		resist := mass * (p.DragDecel*ratio*ratio + p.RollingDecel*ratio)
		world.ApplyForce(v.Body, tm.Planar(vel).Mul(-resist/speed))
		world.ApplyForce(v.Body, mgl64.Vec3{0, -mass * p.DownforceDecel * ratio * ratio, 0})
	}

	// hard clamps
	clamped := vel
	if capSpeed := p.MaxSpeed * p.SpeedCapFactor; speed > capSpeed {
		scale := capSpeed / speed
		clamped = mgl64.Vec3{vel.X() * scale, vel.Y(), vel.Z() * scale}
	}
	clamped[1] = lo.Clamp(clamped.Y(), -p.MaxVerticalSpeed, p.MaxVerticalSpeed)
	if clamped != vel {
		world.SetLinearVelocity(v.Body, clamped)
	}

	v.Last = tel
}

func (v *Vehicle) isManual() bool {
	_, ok := v.Control.(*Manual)
	return ok
}

// regulateYaw returns the PD torque toward target plus the ESC correction.
func (v *Vehicle) regulateYaw(target, yawRate, vf, speed, massRatio, dt float64) float64 {
	p := v.Params
	err := target - yawRate
	if m.Abs(err) < p.YawDeadband {
		err = 0
	}
	speedRatio := lo.Clamp(speed/p.YawReferenceSpeed, 0, 1)
	gain := massRatio * (0.5 + 0.5*speedRatio)
	fade := p.ReverseSteerGate
	if vf >= 0 {
		fade = lo.Clamp(vf/p.SteerFadeSpeed, 0, 1)
	}

	torque := p.YawKp*gain*err*fade - p.YawKd*gain*(yawRate-v.prevYawRate)/dt
	limit := p.SteerStrength * massRatio
	torque = lo.Clamp(torque, -limit, limit)

	if over := m.Abs(yawRate) - p.MaxYawRate; over > p.EscMargin {
		torque -= tm.Sign(yawRate) * p.EscGain * massRatio * over
	}
	v.prevYawRate = yawRate
	return torque
}

// resolveControl turns the control source into throttle and a target yaw
// rate.
func (v *Vehicle) resolveControl(pos mgl64.Vec3, yaw float64, vel mgl64.Vec3, vf, dt float64, probes Probes) intent {
	p := v.Params
	switch c := v.Control.(type) {
	case *Autopilot:
		cmd, next, dbg := pursuit.StepDebug(c.Path, pursuit.Input{Position: pos, Yaw: yaw, Velocity: vel, Speed: vf, Dt: dt}, v.Pursuit, c.Params)
		v.Pursuit = next
		v.LastDebug = dbg
		in := intent{throttle: cmd.Throttle, yawRate: cmd.YawRate}
		if probes.FrontBlocked && probes.FrontNear {
			in.throttle = p.EscapeThrottle
		}
		if v.avoidTimer > 0 {
			in.yawRate = lo.Clamp(in.yawRate+v.avoidSign*p.AvoidYawRate, -p.MaxYawRate, p.MaxYawRate)
		}
		in.idle = c.Path.Len() == 0
		return in
	case *Manual:
		throttle := v.input.Throttle(c.Keys, p, dt)
		steer := v.input.Steering(c.Keys, p, vf, dt)
		speedRatio := lo.Clamp(m.Abs(vf)/p.YawReferenceSpeed, 0, 1)
		target := steer * p.MaxYawRate * speedRatio
		if vf < -p.EscapeMinSpeed {
			target = -target
		}
		if c.Assist != nil && c.AssistWeight > 0 {
			cmd, next := pursuit.Step(c.Assist, pursuit.Input{Position: pos, Yaw: yaw, Velocity: vel, Speed: vf, Dt: dt}, v.Pursuit, c.assistParams())
			v.Pursuit = next
			w := lo.Clamp(c.AssistWeight, 0, 1)
			target = (1-w)*target + w*cmd.YawRate
		}
		return intent{
			throttle: throttle,
			yawRate:  target,
			brake:    c.Keys.Brake,
			steering: steer,
			idle:     !c.Keys.Any() && m.Abs(throttle) < p.InputDeadzone && m.Abs(steer) < p.InputDeadzone,
		}
	}
	return intent{idle: true}
}
