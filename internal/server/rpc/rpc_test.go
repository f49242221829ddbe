package rpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"projectbeheer/backend/internal/platform/apperr"
)

type echoRequest struct {
	Name    string `json:"name"`
	Version int64  `json:"version"`
}

type echoResponse struct {
	Greeting string `json:"greeting"`
	Next     int64  `json:"next"`
}

func echoService() Service {
	return Service{
		Name: "test.EchoService",
		Methods: []Method{
			{Name: "Echo", Handler: func(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				var in echoRequest
				if err := Decode(req, &in); err != nil {
					return nil, err
				}
				return Encode(echoResponse{Greeting: "hello " + in.Name, Next: in.Version + 1})
			}},
			{Name: "Fail", Handler: func(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return nil, status.Error(codes.Aborted, "version conflict")
			}},
		},
	}
}

func dial(t *testing.T, svc Service, opts ...grpc.ServerOption) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer(opts...)
	svc.Register(s)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestInvoke_RoundTrip(t *testing.T) {
	conn := dial(t, echoService())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out echoResponse
	require.NoError(t, Invoke(ctx, conn, "test.EchoService", "Echo", echoRequest{Name: "fase 2", Version: 41}, &out))
	assert.Equal(t, "hello fase 2", out.Greeting)
	assert.Equal(t, int64(42), out.Next)
}

func TestInvoke_StatusPassesThrough(t *testing.T) {
	conn := dial(t, echoService())
	err := Invoke(context.Background(), conn, "test.EchoService", "Fail", struct{}{}, nil)
	assert.Equal(t, codes.Aborted, status.Code(err))
}

func TestDesc_InterceptorSeesFullMethod(t *testing.T) {
	var seen string
	interceptor := func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		seen = info.FullMethod
		return handler(ctx, req)
	}
	conn := dial(t, echoService(), grpc.ChainUnaryInterceptor(interceptor))

	require.NoError(t, Invoke(context.Background(), conn, "test.EchoService", "Echo", echoRequest{}, nil))
	assert.Equal(t, "/test.EchoService/Echo", seen)
}

func TestDesc_Shape(t *testing.T) {
	desc := echoService().Desc()
	assert.Equal(t, "test.EchoService", desc.ServiceName)
	require.Len(t, desc.Methods, 2)
	assert.Equal(t, "Echo", desc.Methods[0].MethodName)
	assert.Equal(t, "/a.B/C", FullMethod("a.B", "C"))
}

func TestDecode_TypeMismatchIsInvalidArgument(t *testing.T) {
	req, err := structpb.NewStruct(map[string]any{"version": "not a number"})
	require.NoError(t, err)

	var in echoRequest
	err = Decode(req, &in)
	assert.True(t, errors.Is(err, apperr.ErrInvalidArgument))
}

func TestDecode_Nil(t *testing.T) {
	var in echoRequest
	require.NoError(t, Decode(nil, &in))
	assert.Equal(t, echoRequest{}, in)
}

func TestEncode_NonObjectFails(t *testing.T) {
	_, err := Encode([]string{"a"})
	assert.Error(t, err)
}

func TestEncodeList(t *testing.T) {
	out, err := EncodeList[string](nil)
	require.NoError(t, err)
	items := out.Fields["items"].GetListValue()
	require.NotNil(t, items)
	assert.Empty(t, items.Values)

	out, err = EncodeList([]echoResponse{{Greeting: "a"}, {Greeting: "b"}})
	require.NoError(t, err)
	assert.Len(t, out.Fields["items"].GetListValue().Values, 2)
}
