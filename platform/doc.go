// Package platform implements the provider-agnostic inference dispatcher:
// given a (model, action) pair and a payload, it normalizes the payload
// through an ordered normalizer chain, invokes the first matching model
// client, and converts the raw result into an ai.DeferredResult.
//
// Subpackages layer on top: platform/router rewrites the target model of an
// in-flight request, platform/failover rotates between Platform instances
// under a retry-and-rate-limit policy, and platform/toolargs reifies JSON
// tool-call arguments into typed parameters.
package platform
