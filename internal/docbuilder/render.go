package docbuilder

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/musearch/bridge/internal/authctx"
	"github.com/musearch/bridge/internal/config"
	"github.com/musearch/bridge/internal/sparql"
)

// render projects the raw bound terms for one property into the
// document value, applying the property's type-specific rule, then
// denumerates the result.
func (b *Builder) render(ctx context.Context, groups authctx.Context, p config.PropertyDefinition, terms []sparql.Term) (interface{}, error) {
	switch p.EffectiveType() {
	case config.TypeLanguageString:
		return renderLanguageString(terms), nil
	case config.TypeAttachment:
		return b.renderAttachments(ctx, terms)
	case config.TypeLambert72:
		return denumerate(renderLambert72(terms)), nil
	default:
		return denumerate(renderSimple(terms)), nil
	}
}

func renderSimple(terms []sparql.Term) []interface{} {
	out := make([]interface{}, 0, len(terms))
	for _, t := range terms {
		out = append(out, nativeValue(t))
	}
	return out
}

// nativeValue maps a bound literal to its Go native representation by
// datatype, widened from "string only" to the simple property type's
// full datatype table. Virtuoso-family endpoints report datatyped
// literals as "typed-literal" rather than "literal"; both carry a
// Datatype and are treated identically here.
func nativeValue(t sparql.Term) interface{} {
	if t.Type != sparql.TermLiteral && t.Type != sparql.TermTypedLiteral {
		return t.Value
	}
	switch {
	case strings.HasSuffix(t.Datatype, "#integer"), strings.HasSuffix(t.Datatype, "#int"),
		strings.HasSuffix(t.Datatype, "#long"), strings.HasSuffix(t.Datatype, "#short"):
		if n, err := strconv.ParseInt(t.Value, 10, 64); err == nil {
			return n
		}
	case strings.HasSuffix(t.Datatype, "#decimal"), strings.HasSuffix(t.Datatype, "#double"),
		strings.HasSuffix(t.Datatype, "#float"):
		if f, err := strconv.ParseFloat(t.Value, 64); err == nil {
			return f
		}
	case strings.HasSuffix(t.Datatype, "#boolean"):
		if v, err := strconv.ParseBool(t.Value); err == nil {
			return v
		}
	}
	return t.Value
}

// renderLanguageString groups literal values by xml:lang, producing
// {"<lang>": [...], "default": [...]} for untagged values.
func renderLanguageString(terms []sparql.Term) map[string][]string {
	out := map[string][]string{}
	for _, t := range terms {
		key := t.Lang
		if key == "" {
			key = "default"
		}
		out[key] = append(out[key], t.Value)
	}
	return out
}

const attachmentScheme = "share://"

// renderAttachments resolves each share:// IRI to a local file and
// extracts its text content, caching extraction results by the
// file's content hash.
func (b *Builder) renderAttachments(ctx context.Context, terms []sparql.Term) ([]interface{}, error) {
	out := make([]interface{}, 0, len(terms))
	for _, t := range terms {
		if !strings.HasPrefix(t.Value, attachmentScheme) {
			continue
		}
		rel := strings.TrimPrefix(t.Value, attachmentScheme)
		content, err := b.Extractor.Extract(ctx, rel)
		if err != nil {
			return nil, fmt.Errorf("extracting attachment %q: %w", t.Value, err)
		}
		out = append(out, map[string]interface{}{"content": content})
	}
	return out, nil
}

// Belgian Lambert 72 -> WGS84 (lat/lon) approximate conversion.
// Constants per the standard IGN/NGI published transform.
const (
	lambertN    = 0.77164219
	lambertF    = 1.81329763
	lambertLon0 = 4.367486666666667
	lambertE    = 0.08199189
	lambertN0   = 5400088.4378
	lambertA    = 6378388.0
	lambertX0   = 150000.01256
	lambertY0   = 5400088.4378
)

func lambert72ToWGS84(x, y float64) (lat, lon float64) {
	a := lambertA
	n := lambertN
	e := lambertE

	xp := x - lambertX0
	yp := lambertN0 - (y - (lambertY0 - lambertN0))
	rho := math.Hypot(xp, yp)
	theta := math.Atan2(xp, yp)

	lambda := (theta / n) + (lambertLon0 * math.Pi / 180)
	t := math.Pow(rho/(a*lambertF), 1/n)
	phi := math.Pi/2 - 2*math.Atan(t)
	for i := 0; i < 5; i++ {
		sinPhi := math.Sin(phi)
		phi = math.Pi/2 - 2*math.Atan(t*math.Pow((1-e*sinPhi)/(1+e*sinPhi), e/2))
	}
	return phi * 180 / math.Pi, lambda * 180 / math.Pi
}

// renderLambert72 parses "x y" coordinate literals and converts them
// to {lat, lon} pairs.
func renderLambert72(terms []sparql.Term) []interface{} {
	out := make([]interface{}, 0, len(terms))
	for _, t := range terms {
		fields := strings.Fields(t.Value)
		if len(fields) != 2 {
			continue
		}
		x, errX := strconv.ParseFloat(fields[0], 64)
		y, errY := strconv.ParseFloat(fields[1], 64)
		if errX != nil || errY != nil {
			continue
		}
		lat, lon := lambert72ToWGS84(x, y)
		out = append(out, map[string]interface{}{"lat": lat, "lon": lon})
	}
	return out
}

// denumerate applies the 0/1/>1 -> null/scalar/array collapse rule.
func denumerate(values []interface{}) interface{} {
	switch len(values) {
	case 0:
		return nil
	case 1:
		return values[0]
	default:
		return values
	}
}
