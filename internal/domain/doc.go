// Package domain models seismic event reports for Chile.
//
// # Data Source
//
// Events come from the public sismos API at
// https://api.gael.cloud/general/public/sismos, which republishes the latest
// reports of the Centro Sismológico Nacional (CSN). One GET returns a JSON array;
// there is no pagination and no authentication.
//
// # API Conventions
//
// Fecha:
//
//	"2006-01-02 15:04:05" in Chile local time (America/Santiago) without an
//	offset. ISO-8601 forms with a "T" separator or an explicit offset are also
//	accepted. Missing or unparseable dates are replaced during cleaning.
//
// Magnitud:
//
//	A number followed by the scale, e.g. "3.2 Ml" or "6.1 Mw". Bare numbers and
//	decimal commas ("3,2") also occur. Anything without a leading numeric token
//	is treated as missing, never as zero.
//
// Profundidad:
//
//	Depth with unit, e.g. "35 km".
//
// RefGeografica:
//
//	"<distance> km al <direction> de <town>", e.g. "45 km al N de Calama".
//	Directions use Spanish compass points where O (oeste) is west:
//	N, S, E, O, NE, NO, SE, SO, NNE, ENE, ESE, SSE, SSO, OSO, ONO, NNO.
//	Parsed by [ParseReference]; the town is what the geocoder looks up.
//
// # Cleaning Fallbacks
//
// The API usually omits coordinates. A record without coordinates is first
// located by geocoding its reference town and projecting the stated distance and
// bearing; when that is not possible a uniform random point inside Chile's
// bounding box (lat -55.0..-17.5, lon -75.0..-66.0) is used. Missing dates are
// replaced by a random whole-day offset within the last 30 days. Every fallback
// is recorded in the quake's CoordSource / TimeSource and counted in
// [CleanReport].
//
// # Severity
//
//	micro <3 | minor <4 | light <5 | moderate <6 | strong <7 | major <8 | great ≥8
//
// # ID Generation
//
// IDs are truncated SHA-256 hashes of every source field as reported by the API,
// so the same report keeps its ID across refreshes. Records repeated verbatim
// within one response get a -2, -3... suffix in [CleanQuakes]. See [generateID].
package domain
