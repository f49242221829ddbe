// Package rpc registers gRPC services whose requests and responses are
// google.protobuf.Struct values holding JSON objects. Handlers work on plain
// Go types; Decode and Encode move between the two.
package rpc

import (
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"projectbeheer/backend/internal/platform/apperr"
)

// Handler serves one unary method.
type Handler func(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

// Method binds a method name to its handler.
type Method struct {
	Name    string
	Handler Handler
}

// Service is a named set of methods, e.g. "projectbeheer.history.v1.HistoryService".
type Service struct {
	Name    string
	Methods []Method
}

// FullMethod returns the gRPC full method name of method on service.
func FullMethod(service, method string) string {
	return "/" + service + "/" + method
}

// Desc builds the grpc.ServiceDesc for s. The returned descriptor accepts any
// implementation value; handlers are closures over their own dependencies.
func (s Service) Desc() *grpc.ServiceDesc {
	desc := &grpc.ServiceDesc{
		ServiceName: s.Name,
		HandlerType: (*any)(nil),
		Streams:     []grpc.StreamDesc{},
		Metadata:    s.Name,
	}
	for _, m := range s.Methods {
		desc.Methods = append(desc.Methods, methodDesc(s.Name, m))
	}
	return desc
}

// Register adds s to r.
func (s Service) Register(r grpc.ServiceRegistrar) {
	r.RegisterService(s.Desc(), struct{}{})
}

func methodDesc(service string, m Method) grpc.MethodDesc {
	h := m.Handler
	full := FullMethod(service, m.Name)
	return grpc.MethodDesc{
		MethodName: m.Name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return h(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return h(ctx, req.(*structpb.Struct))
			})
		},
	}
}

// Decode unmarshals req into v via its JSON form. Malformed input is an
// apperr.ErrInvalidArgument.
func Decode(req *structpb.Struct, v any) error {
	if req == nil {
		req = &structpb.Struct{}
	}
	b, err := protojson.Marshal(req)
	if err != nil {
		return apperr.Invalid(errors.Wrap(err, "decode request"))
	}
	if err := json.Unmarshal(b, v); err != nil {
		return apperr.Invalid(errors.Wrap(err, "decode request"))
	}
	return nil
}

// Encode marshals v, which must encode to a JSON object, into a Struct.
func Encode(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode response")
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, errors.Wrap(err, "encode response")
	}
	return out, nil
}

// List is the response shape for collections.
type List[T any] struct {
	Items []T `json:"items"`
}

// EncodeList wraps items as {"items": [...]}. A nil slice encodes as [].
func EncodeList[T any](items []T) (*structpb.Struct, error) {
	if items == nil {
		items = []T{}
	}
	return Encode(List[T]{Items: items})
}

// Invoke calls service/method on conn with in encoded as a Struct and decodes
// the response into out. out may be nil.
func Invoke(ctx context.Context, conn grpc.ClientConnInterface, service, method string, in, out any) error {
	req, err := Encode(in)
	if err != nil {
		return err
	}
	resp := &structpb.Struct{}
	if err := conn.Invoke(ctx, FullMethod(service, method), req, resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return Decode(resp, out)
}
