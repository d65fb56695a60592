// Package stack declares the web application's cloud topology: a private
// site bucket, a keyed table, the request handler, an HTTP gateway, a CDN
// fronting both bucket and gateway, and the user directory. The package
// only builds the declaration graph; planning and applying it belongs to
// the orchestration engine.
package stack

import (
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"

	"github.com/oakmoss/webstack/internal/config"
)

// Output names exported by the stack, in the order they are declared.
const (
	OutBucketName               = "BucketName"
	OutUserPoolID               = "UserPoolId"
	OutUserPoolWebClientID      = "UserPoolWebClientId"
	OutCloudFrontURL            = "CloudFrontURL"
	OutCloudFrontDistributionID = "CloudFrontDistributionId"
	OutAPIEndpoint              = "ApiEndpoint"
)

// OutputNames lists every stack export. Consumers (the CLI, verification)
// key off these names.
var OutputNames = []string{
	OutBucketName,
	OutUserPoolID,
	OutUserPoolWebClientID,
	OutCloudFrontURL,
	OutCloudFrontDistributionID,
	OutAPIEndpoint,
}

// Stack holds references to every declared resource group so callers and
// tests can inspect the graph.
type Stack struct {
	Storage  *Storage
	Table    *Table
	Handler  *Handler
	Gateway  *Gateway
	Cdn      *Cdn
	Identity *Identity
}

// Deploy builds the declaration graph in dependency order and registers
// the stack exports. It has no side effects of its own; the resulting
// graph is inert until the engine plans and applies it.
func Deploy(ctx *pulumi.Context, cfg *config.Config) (*Stack, error) {
	storage, err := newStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	table, err := newTable(ctx)
	if err != nil {
		return nil, err
	}

	handler, err := newHandler(ctx, cfg, HandlerArgs{Table: table})
	if err != nil {
		return nil, err
	}

	gateway, err := newGateway(ctx, GatewayArgs{Handler: handler})
	if err != nil {
		return nil, err
	}

	cdn, err := newCdn(ctx, CdnArgs{Storage: storage, Gateway: gateway})
	if err != nil {
		return nil, err
	}

	identity, err := newIdentity(ctx, IdentityArgs{Cdn: cdn, DevOrigin: cfg.DevOrigin})
	if err != nil {
		return nil, err
	}

	ctx.Export(OutBucketName, storage.Bucket.Bucket)
	ctx.Export(OutUserPoolID, identity.Pool.ID())
	ctx.Export(OutUserPoolWebClientID, identity.Client.ID())
	ctx.Export(OutCloudFrontURL, cdn.Distribution.DomainName)
	ctx.Export(OutCloudFrontDistributionID, cdn.Distribution.ID())
	ctx.Export(OutAPIEndpoint, gateway.InvokeURL)

	return &Stack{
		Storage:  storage,
		Table:    table,
		Handler:  handler,
		Gateway:  gateway,
		Cdn:      cdn,
		Identity: identity,
	}, nil
}
