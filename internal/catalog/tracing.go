package catalog

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("hmcpl.catalog.Client")

// traced runs `fn` inside a span named `name`, recording its input and output as json
// attributes when the span is sampled.
func traced[T any](ctx context.Context, name string, input any, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, span := tracer.Start(ctx, name)
	defer span.End()

	if span.IsRecording() && input != nil {
		serialized, err := json.Marshal(input)
		if err == nil {
			span.SetAttributes(attribute.String("input", string(serialized)))
		} else {
			span.SetAttributes(attribute.String("input", "ERROR: FAILED TO SERIALIZE"))
			span.RecordError(err)
		}
	}

	res, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}

	if span.IsRecording() {
		output, err := json.Marshal(res)
		if err == nil {
			span.SetAttributes(attribute.String("output", string(output)))
		} else {
			span.SetAttributes(attribute.String("output", "ERROR: FAILED TO SERIALIZE"))
			span.RecordError(err)
		}
	}
	return res, nil
}
