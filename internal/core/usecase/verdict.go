package usecase

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
	"unicode"

	"github.com/invopop/jsonschema"

	"github.com/juristcu/juristcu-api/internal/core/domain"
)

const verdictSchemaName = "criterion_verdict"

// verdict is the only response shape a provider may return for a criterion.
type verdict struct {
	Atende        bool   `json:"atende" jsonschema_description:"true only when the criterion is clearly met"`
	Justificativa string `json:"justificativa" jsonschema_description:"short justification in Portuguese"`
}

type verdictWire struct {
	Atende        *bool   `json:"atende"`
	Justificativa *string `json:"justificativa"`
}

var verdictSchema = func() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(verdict{})
}()

// VerdictSchema returns the JSON schema sent along with every evaluation prompt.
func VerdictSchema() any {
	return verdictSchema
}

// decodeVerdict accepts exactly one JSON object with the fields atende and justificativa,
// optionally wrapped in a markdown code fence. Anything else is ErrResponseParseFailure.
func decodeVerdict(raw string) (verdict, error) {
	const op = "decode verdict"

	body := stripCodeFence(raw)
	if body == "" {
		return verdict{}, domain.WrapError(domain.ErrResponseParseFailure, op, errors.New("empty response"))
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.DisallowUnknownFields()

	var wire verdictWire
	if err := dec.Decode(&wire); err != nil {
		return verdict{}, domain.WrapError(domain.ErrResponseParseFailure, op, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return verdict{}, domain.WrapError(domain.ErrResponseParseFailure, op, errors.New("trailing data after object"))
	}
	if wire.Atende == nil {
		return verdict{}, domain.WrapError(domain.ErrResponseParseFailure, op, errors.New("missing field atende"))
	}
	if wire.Justificativa == nil {
		return verdict{}, domain.WrapError(domain.ErrResponseParseFailure, op, errors.New("missing field justificativa"))
	}
	return verdict{Atende: *wire.Atende, Justificativa: *wire.Justificativa}, nil
}

func stripCodeFence(raw string) string {
	body := strings.TrimSpace(raw)
	if !strings.HasPrefix(body, "```") {
		return body
	}
	body = strings.TrimPrefix(body, "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		// Drop the info string, e.g. ```json.
		if lang := strings.TrimSpace(body[:nl]); lang == "" || isFenceLanguage(lang) {
			body = body[nl+1:]
		}
	}
	body = dropInlineInfoString(body)
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body)
}

func isFenceLanguage(s string) bool {
	return !strings.ContainsAny(s, "{}[]\" ")
}

// dropInlineInfoString removes an info string glued to the object, as in ```json{...}```.
func dropInlineInfoString(body string) string {
	end := strings.IndexFunc(body, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if end <= 0 {
		return body
	}
	if rest := strings.TrimLeft(body[end:], " \t"); strings.HasPrefix(rest, "{") {
		return rest
	}
	return body
}
