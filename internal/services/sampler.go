package services

import (
	"errors"
	"fmt"
	"math"
	"route-weather-service/internal/domain"
	"route-weather-service/internal/platform/obs"
	"sort"
)

// Stops closer than this along the route are treated as the same place.
const coincidentMeters = 1.0

// MaxSamplePoints bounds the checkpoints one route may produce; each one costs
// outbound weather calls.
const MaxSamplePoints = 2000

// Sampler turns a route polyline into evenly spaced sample points.
type Sampler struct {
	unit         domain.DistanceUnit
	epsilonRatio float64
}

// NewSampler builds a sampler measuring intervals in unit. A checkpoint that
// lands within epsilonRatio*interval of a stop is dropped in favour of the stop.
func NewSampler(unit domain.DistanceUnit, epsilonRatio float64) *Sampler {
	if epsilonRatio < 0 {
		epsilonRatio = 0
	}
	return &Sampler{unit: unit, epsilonRatio: epsilonRatio}
}

func (s *Sampler) Unit() domain.DistanceUnit { return s.unit }

type marker struct {
	offset  float64
	loc     domain.Coordinates
	isStop  bool
	address string
}

// Sample walks route and emits stops and interval checkpoints ordered by
// distance from the origin, indexed 0..N-1.
//
// Every stop is kept at the offset of its polyline vertex. Checkpoints are
// placed every interval units from the origin by linear interpolation between
// the bracketing vertices, and only between the first and last stop, so the
// first and last points are always stops. Stops sharing one offset collapse to
// a single point carrying the first stop's address, or the destination's
// address when the group ends the route.
func (s *Sampler) Sample(route *domain.Route, interval float64) ([]domain.SamplePoint, error) {
	if math.IsNaN(interval) || math.IsInf(interval, 0) || interval <= 0 {
		return nil, &domain.ValidationError{Field: "interval_distance", Reason: "must be a positive number"}
	}

	if route == nil || len(route.Stops) == 0 {
		return nil, &domain.RouteResolutionError{Err: errors.New("route has no stops")}
	}

	line := route.Polyline
	if len(line) == 0 {
		return nil, &domain.RouteResolutionError{
			Address: route.Stops[0].Address,
			Err:     errors.New("route has no coordinates"),
		}
	}

	// A single vertex is only acceptable when every stop is the same place.
	if len(line) < 2 {
		for _, st := range route.Stops[1:] {
			if domain.HaversineMeters(route.Stops[0].Location, st.Location) > coincidentMeters {
				return nil, &domain.RouteResolutionError{
					Address: st.Address,
					Err:     errors.New("route has fewer than two coordinates"),
				}
			}
		}
	}

	prev := 0
	for i, st := range route.Stops {
		if st.VertexIndex < 0 || st.VertexIndex >= len(line) {
			return nil, &domain.RouteResolutionError{
				Address: st.Address,
				Err:     fmt.Errorf("stop vertex %d outside polyline of %d points", st.VertexIndex, len(line)),
			}
		}
		if i > 0 && st.VertexIndex < prev {
			return nil, &domain.RouteResolutionError{
				Address: st.Address,
				Err:     fmt.Errorf("stop vertex %d precedes previous stop vertex %d", st.VertexIndex, prev),
			}
		}
		prev = st.VertexIndex
	}

	cum := cumulativeMeters(line)
	stops := stopMarkers(route.Stops, line, cum)

	step := s.unit.Meters(interval)
	if span := stops[len(stops)-1].offset - stops[0].offset; span/step > MaxSamplePoints {
		return nil, &domain.ValidationError{
			Field:  "interval_distance",
			Reason: fmt.Sprintf("too small for a %.1f%s route (more than %d sample points)", s.unit.FromMeters(span), s.unit, MaxSamplePoints),
		}
	}
	checkpoints := s.checkpoints(line, cum, stops, step)

	merged := make([]marker, 0, len(stops)+len(checkpoints))
	i, j := 0, 0
	for i < len(stops) || j < len(checkpoints) {
		if j >= len(checkpoints) || (i < len(stops) && stops[i].offset <= checkpoints[j].offset) {
			merged = append(merged, stops[i])
			i++
			continue
		}
		merged = append(merged, checkpoints[j])
		j++
	}

	// Distances are reported from the origin stop, not from vertex 0.
	origin := stops[0].offset
	points := make([]domain.SamplePoint, 0, len(merged))
	for idx, m := range merged {
		p := domain.SamplePoint{
			SequenceIndex: idx,
			Location:      m.loc,
			IsStop:        m.isStop,
			Distance:      s.unit.FromMeters(m.offset - origin),
		}
		if m.isStop {
			addr := m.address
			p.Address = &addr
		}
		points = append(points, p)
	}

	obs.SamplePointsEmitted.WithLabelValues("stop").Add(float64(len(stops)))
	obs.SamplePointsEmitted.WithLabelValues("checkpoint").Add(float64(len(checkpoints)))

	return points, nil
}

func cumulativeMeters(line domain.Polyline) []float64 {
	cum := make([]float64, len(line))
	for i := 1; i < len(line); i++ {
		cum[i] = cum[i-1] + domain.HaversineMeters(line[i-1], line[i])
	}
	return cum
}

// stopMarkers places each stop on its vertex, collapsing coincident stops.
// A collapsed group keeps its first address, except that a group ending the
// route takes the destination's address so the last point names it.
func stopMarkers(stops []domain.RouteStop, line domain.Polyline, cum []float64) []marker {
	out := make([]marker, 0, len(stops))
	for i, st := range stops {
		offset := cum[st.VertexIndex]
		if n := len(out); n > 0 && offset-out[n-1].offset < coincidentMeters {
			if i == len(stops)-1 && n > 1 {
				out[n-1].address = st.Address
			}
			continue
		}
		out = append(out, marker{
			offset:  offset,
			loc:     line[st.VertexIndex],
			isStop:  true,
			address: st.Address,
		})
	}
	return out
}

// checkpoints emits interpolated points every step meters strictly between
// the first and last stop, skipping any that land too close to a stop.
func (s *Sampler) checkpoints(line domain.Polyline, cum []float64, stops []marker, step float64) []marker {
	if len(stops) < 2 {
		return nil
	}

	start := stops[0].offset
	end := stops[len(stops)-1].offset
	epsilon := math.Max(s.epsilonRatio*step, coincidentMeters)

	offsets := make([]float64, len(stops))
	for i, st := range stops {
		offsets[i] = st.offset
	}

	var out []marker
	seg := 0
	for k := 1; ; k++ {
		d := start + float64(k)*step
		if d >= end {
			break
		}

		if nearStop(offsets, d, epsilon) {
			continue
		}

		for seg < len(cum)-2 && cum[seg+1] < d {
			seg++
		}
		segLen := cum[seg+1] - cum[seg]
		f := 0.0
		if segLen > 0 {
			f = (d - cum[seg]) / segLen
		}

		out = append(out, marker{
			offset: d,
			loc:    domain.Interpolate(line[seg], line[seg+1], f),
		})
	}
	return out
}

// nearStop reports whether d lies within epsilon of any sorted stop offset.
func nearStop(offsets []float64, d, epsilon float64) bool {
	i := sort.SearchFloat64s(offsets, d)
	if i < len(offsets) && offsets[i]-d < epsilon {
		return true
	}
	if i > 0 && d-offsets[i-1] < epsilon {
		return true
	}
	return false
}
