package infrastructure

import (
	"strconv"

	"go.opentelemetry.io/otel/attribute"
)

const (
	httpMethodKey        = "http.method"
	httpPathKey          = "http.path"
	httpStatusCodeKey    = "http.status_code"
	statusKey            = "status"
	messageKindKey       = "messaging.kind"
	resourceKindKey      = "messaging.resource_kind"
	operationKey         = "admin.operation"
	outcomeKey           = "admin.outcome"
	directoryResourceKey = "directory.resource"
)

func HTTPMethodAttr(method string) attribute.KeyValue {
	return attribute.String(httpMethodKey, method)
}

func HTTPPathAttr(path string) attribute.KeyValue {
	return attribute.String(httpPathKey, path)
}

func HTTPStatusCodeAttr(code int) attribute.KeyValue {
	return attribute.String(httpStatusCodeKey, strconv.Itoa(code))
}

func StatusAttr(status string) attribute.KeyValue {
	return attribute.String(statusKey, status)
}

// MessageKindAttr is "direct" or "topic".
func MessageKindAttr(kind string) attribute.KeyValue {
	return attribute.String(messageKindKey, kind)
}

func ResourceKindAttr(kind string) attribute.KeyValue {
	return attribute.String(resourceKindKey, kind)
}

func OperationAttr(operation string) attribute.KeyValue {
	return attribute.String(operationKey, operation)
}

func OutcomeAttr(outcome string) attribute.KeyValue {
	return attribute.String(outcomeKey, outcome)
}

func DirectoryResourceAttr(resource string) attribute.KeyValue {
	return attribute.String(directoryResourceKey, resource)
}
