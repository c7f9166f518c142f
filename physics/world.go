package physics

import "github.com/go-gl/mathgl/mgl64"

// BodyID is a handle into a World. The zero value refers to no body.
type BodyID int

const NoBody BodyID = 0

type RayHit struct {
	Distance float64
	Point    mgl64.Vec3
	Normal   mgl64.Vec3
	Body     BodyID
	Static   bool
}

type QueryFilter struct {
	Exclude    BodyID
	StaticOnly bool
}

// Contact is delivered when two dynamic bodies start touching.
type Contact struct {
	A, B   BodyID
	Normal mgl64.Vec3
	Point  mgl64.Vec3
}

type ContactSink interface {
	Push(Contact)
}

// World is the rigid body engine seen by vehicles. Getters report false for
// stale handles and setters ignore them.
type World interface {
	CastRay(origin, dir mgl64.Vec3, maxDist float64, filter QueryFilter) (RayHit, bool)

	ApplyForce(id BodyID, f mgl64.Vec3)
	ApplyImpulse(id BodyID, j mgl64.Vec3)
	ApplyTorque(id BodyID, tau mgl64.Vec3)
	SetLinearVelocity(id BodyID, v mgl64.Vec3)
	SetAngularVelocity(id BodyID, w mgl64.Vec3)
	SetTranslation(id BodyID, p mgl64.Vec3)
	SetRotation(id BodyID, q mgl64.Quat)

	Translation(id BodyID) (mgl64.Vec3, bool)
	Rotation(id BodyID) (mgl64.Quat, bool)
	LinearVelocity(id BodyID) (mgl64.Vec3, bool)
	AngularVelocity(id BodyID) (mgl64.Vec3, bool)
	Mass(id BodyID) (float64, bool)
}
