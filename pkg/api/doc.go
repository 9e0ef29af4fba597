/*
Package api exposes the Grain Storage Core over gRPC: a three-method
GrainStorage service (Read, Write, Clear) hand-wired onto grpc.ServiceDesc
with a JSON wire codec, since this facade has no .proto source to generate
from. Server multiplexes one grainstore.Core per storage-name; the same
process also serves /healthz, /readyz and /metrics over plain HTTP.
*/
package api
