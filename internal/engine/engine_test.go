package engine

import (
	"testing"

	"github.com/pulumi/pulumi/sdk/v3/go/auto"
	"github.com/stretchr/testify/assert"
)

func TestFlattenOutputs(t *testing.T) {
	outs := auto.OutputMap{
		"BucketName":  {Value: "webstack-site-123456"},
		"ApiEndpoint": {Value: "https://abc.execute-api.us-east-1.amazonaws.com/prod"},
	}

	flat := flattenOutputs(outs)

	assert.Equal(t, map[string]string{
		"BucketName":  "webstack-site-123456",
		"ApiEndpoint": "https://abc.execute-api.us-east-1.amazonaws.com/prod",
	}, flat)
}

func TestFlattenOutputsEmpty(t *testing.T) {
	assert.Empty(t, flattenOutputs(auto.OutputMap{}))
}
