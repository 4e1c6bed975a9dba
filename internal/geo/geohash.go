// Package geo provides coarse location handling and distance math for
// proximity scoring. Locations are deliberately imprecise: profile
// coordinates are snapped to geohash cells so the engine never holds a
// venue-level position.
package geo

import "strings"

// CityPrecision is the geohash precision used to coarsen profile locations.
// Five characters is roughly a ±2.4 km cell, which is city-district level.
const CityPrecision = 5

// base32 is the geohash base32 alphabet (excludes 'a', 'i', 'l', 'o').
const base32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// base32Index maps a geohash character back to its 5-bit value.
var base32Index = func() map[byte]uint {
	m := make(map[byte]uint, len(base32))
	for i := 0; i < len(base32); i++ {
		m[base32[i]] = uint(i)
	}
	return m
}()

// Encode encodes latitude and longitude into a geohash string of the given
// precision using the standard interleaved bisection algorithm.
func Encode(lat, lng float64, precision int) string {
	if precision < 1 {
		precision = CityPrecision
	}

	latRange := [2]float64{-90.0, 90.0}
	lngRange := [2]float64{-180.0, 180.0}

	var geohash strings.Builder
	geohash.Grow(precision)

	bits := 0
	var ch uint

	even := true
	for geohash.Len() < precision {
		if even {
			mid := (lngRange[0] + lngRange[1]) / 2
			if lng > mid {
				ch |= (1 << (4 - bits))
				lngRange[0] = mid
			} else {
				lngRange[1] = mid
			}
		} else {
			mid := (latRange[0] + latRange[1]) / 2
			if lat > mid {
				ch |= (1 << (4 - bits))
				latRange[0] = mid
			} else {
				latRange[1] = mid
			}
		}

		even = !even
		bits++

		if bits == 5 {
			geohash.WriteByte(base32[ch])
			bits = 0
			ch = 0
		}
	}

	return geohash.String()
}

// DecodeCenter decodes a geohash to the center point of its cell.
// Returns ok=false if the string is empty or contains characters outside
// the geohash alphabet.
func DecodeCenter(geohash string) (lat, lng float64, ok bool) {
	if geohash == "" {
		return 0, 0, false
	}

	latRange := [2]float64{-90.0, 90.0}
	lngRange := [2]float64{-180.0, 180.0}

	even := true
	for i := 0; i < len(geohash); i++ {
		val, valid := base32Index[geohash[i]]
		if !valid {
			return 0, 0, false
		}
		for bit := 4; bit >= 0; bit-- {
			set := val&(1<<uint(bit)) != 0
			if even {
				mid := (lngRange[0] + lngRange[1]) / 2
				if set {
					lngRange[0] = mid
				} else {
					lngRange[1] = mid
				}
			} else {
				mid := (latRange[0] + latRange[1]) / 2
				if set {
					latRange[0] = mid
				} else {
					latRange[1] = mid
				}
			}
			even = !even
		}
	}

	return (latRange[0] + latRange[1]) / 2, (lngRange[0] + lngRange[1]) / 2, true
}

// Coarsen snaps a coordinate to the center of its city-level geohash cell.
// Two users in the same cell coarsen to the same point, so the engine
// cannot distinguish positions finer than the cell size.
func Coarsen(p Point) Point {
	lat, lng, _ := DecodeCenter(Encode(p.Lat, p.Lng, CityPrecision))
	return Point{Lat: lat, Lng: lng}
}
