package verify

import (
	"fmt"
	"net/url"
	"strings"
)

// Outputs carries the six values a successful provisioning run exports.
// Everything the checker inspects is resolved from these alone.
type Outputs struct {
	BucketName               string
	UserPoolID               string
	UserPoolClientID         string
	CloudFrontURL            string
	CloudFrontDistributionID string
	APIEndpoint              string
}

// FromMap builds Outputs from a stack's resolved output map, requiring
// every expected name to be present and non-empty.
func FromMap(outs map[string]string) (Outputs, error) {
	fields := map[string]*string{}
	o := Outputs{}
	fields["BucketName"] = &o.BucketName
	fields["UserPoolId"] = &o.UserPoolID
	fields["UserPoolWebClientId"] = &o.UserPoolClientID
	fields["CloudFrontURL"] = &o.CloudFrontURL
	fields["CloudFrontDistributionId"] = &o.CloudFrontDistributionID
	fields["ApiEndpoint"] = &o.APIEndpoint

	for name, dst := range fields {
		v, ok := outs[name]
		if !ok || v == "" {
			return Outputs{}, fmt.Errorf("stack output %s is missing or empty", name)
		}
		*dst = v
	}
	return o, nil
}

// apiEndpointParts extracts the REST API id, region, and stage name from
// an execute-api invoke URL such as
// https://abc123.execute-api.us-east-1.amazonaws.com/prod.
func apiEndpointParts(endpoint string) (apiID, region, stage string, err error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", "", "", fmt.Errorf("invalid api endpoint %q: %w", endpoint, err)
	}

	host := strings.Split(u.Hostname(), ".")
	if len(host) < 4 || host[1] != "execute-api" {
		return "", "", "", fmt.Errorf("api endpoint %q is not an execute-api URL", endpoint)
	}

	stage = strings.Trim(u.Path, "/")
	if stage == "" {
		return "", "", "", fmt.Errorf("api endpoint %q has no stage path", endpoint)
	}

	return host[0], host[2], stage, nil
}

// lambdaArnFromIntegrationURI pulls the function ARN out of an API Gateway
// integration URI of the form
// arn:aws:apigateway:{region}:lambda:path/2015-03-31/functions/{arn}/invocations.
func lambdaArnFromIntegrationURI(uri string) (string, error) {
	const marker = "/functions/"
	i := strings.Index(uri, marker)
	if i < 0 {
		return "", fmt.Errorf("integration uri %q does not reference a function", uri)
	}
	arn := strings.TrimSuffix(uri[i+len(marker):], "/invocations")
	if arn == "" || !strings.HasPrefix(arn, "arn:") {
		return "", fmt.Errorf("integration uri %q does not reference a function", uri)
	}
	return arn, nil
}
