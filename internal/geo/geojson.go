package geo

import (
	geojson "github.com/paulmach/go.geojson"

	"github.com/signalsfoundry/comms-inspector/core"
)

// Feature kinds carried in the "kind" property.
const (
	KindPlatform     = "platform"
	KindTransmission = "transmission"
)

// FrameCollection exports a rendered frame. Platforms become Point features
// and transmissions become LineString features following the drawn path.
// Positions without a geodetic equivalent are skipped.
func FrameCollection(f core.Frame) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	seen := make(map[string]bool)

	addPlatform := func(name string, at core.Vec3, role string) {
		if seen[name] {
			return
		}
		lla, ok := ToGeodetic(at)
		if !ok {
			return
		}
		seen[name] = true
		pt := geojson.NewPointFeature(lla.Coordinates())
		pt.SetProperty("kind", KindPlatform)
		pt.SetProperty("name", name)
		pt.SetProperty("role", role)
		pt.SetProperty("altitude_m", lla.Altitude)
		fc.AddFeature(pt)
	}

	for _, p := range f.Internal {
		addPlatform(p.Sender, p.Position, "internal")
	}
	for _, tx := range f.Transmissions {
		if len(tx.Line) < 2 {
			continue
		}
		addPlatform(tx.Sender, tx.Line[0], "sender")
		addPlatform(tx.Receiver, tx.Line[len(tx.Line)-1], "receiver")
	}

	for _, tx := range f.Transmissions {
		coords := make([][]float64, 0, len(tx.Line))
		for _, v := range tx.Line {
			if lla, ok := ToGeodetic(v); ok {
				coords = append(coords, lla.Coordinates())
			}
		}
		if len(coords) < 2 {
			continue
		}
		ls := geojson.NewLineStringFeature(coords)
		ls.SetProperty("kind", KindTransmission)
		ls.SetProperty("sender", tx.Sender)
		ls.SetProperty("sender_part", tx.SenderPart)
		ls.SetProperty("receiver", tx.Receiver)
		ls.SetProperty("receiver_part", tx.ReceiverPart)
		ls.SetProperty("outcome", string(tx.Outcome))
		ls.SetProperty("color", tx.Color)
		ls.SetProperty("curved", tx.Curved)
		fc.AddFeature(ls)
	}
	return fc
}
