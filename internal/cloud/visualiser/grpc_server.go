package visualiser

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	renderServiceName = "cloudbridge.RenderService"
	streamMethod      = "StreamGeometry"
	streamFullMethod  = "/" + renderServiceName + "/" + streamMethod

	// Large clouds exceed the 4 MB gRPC default.
	maxMsgSize = 64 * 1024 * 1024
)

// RenderServiceServer is the server API for the render stream. Each message
// on the stream is a BytesValue holding an EncodeGeometry payload.
type RenderServiceServer interface {
	StreamGeometry(req *emptypb.Empty, stream grpc.ServerStream) error
}

var renderServiceDesc = grpc.ServiceDesc{
	ServiceName: renderServiceName,
	HandlerType: (*RenderServiceServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    streamMethod,
			Handler:       streamGeometryHandler,
			ServerStreams: true,
		},
	},
	Metadata: "cloudbridge/render.proto",
}

func streamGeometryHandler(srv interface{}, stream grpc.ServerStream) error {
	req := new(emptypb.Empty)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(RenderServiceServer).StreamGeometry(req, stream)
}

// RegisterRenderService registers srv on s.
func RegisterRenderService(s grpc.ServiceRegistrar, srv RenderServiceServer) {
	s.RegisterService(&renderServiceDesc, srv)
}

// Ensure RenderServer implements the gRPC interface.
var _ RenderServiceServer = (*RenderServer)(nil)

// RenderServer streams published geometry to remote renderers.
type RenderServer struct {
	publisher *Publisher
	config    Config

	server   *grpc.Server
	listener net.Listener
	running  atomic.Bool
	wg       sync.WaitGroup
}

// NewRenderServer creates a server backed by publisher.
func NewRenderServer(publisher *Publisher, cfg Config) *RenderServer {
	return &RenderServer{publisher: publisher, config: cfg}
}

// StreamGeometry sends the current geometry and then every new version until
// the client goes away.
func (s *RenderServer) StreamGeometry(_ *emptypb.Empty, stream grpc.ServerStream) error {
	ctx := stream.Context()
	id, ch := s.publisher.Subscribe()
	defer s.publisher.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case g, ok := <-ch:
			if !ok {
				return status.Error(codes.Unavailable, "publisher closed subscription")
			}
			data, err := EncodeGeometry(g)
			if err != nil {
				return status.Errorf(codes.Internal, "encode geometry: %v", err)
			}
			if err := stream.SendMsg(wrapperspb.Bytes(data)); err != nil {
				log.Printf("[gRPC] Send error for %s: %v", id, err)
				return err
			}
		}
	}
}

// Start listens on the configured address and serves the render stream.
func (s *RenderServer) Start() error {
	if s.running.Load() {
		return fmt.Errorf("render server already running")
	}
	lis, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	s.Serve(lis)
	return nil
}

// Serve serves on an existing listener in the background.
func (s *RenderServer) Serve(lis net.Listener) {
	s.listener = lis
	s.server = grpc.NewServer(
		grpc.MaxRecvMsgSize(maxMsgSize),
		grpc.MaxSendMsgSize(maxMsgSize),
	)
	RegisterRenderService(s.server, s)
	s.running.Store(true)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Printf("[gRPC] render stream listening on %s", lis.Addr())
		if err := s.server.Serve(lis); err != nil && s.running.Load() {
			log.Printf("[gRPC] render server error: %v", err)
		}
	}()
}

// Addr returns the bound address, or nil before Start.
func (s *RenderServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop stops the server. Open streams are cancelled.
func (s *RenderServer) Stop() {
	if !s.running.Swap(false) {
		return
	}
	// Streams block until the client leaves, so GracefulStop would hang.
	s.server.Stop()
	s.wg.Wait()
	log.Printf("[gRPC] render server stopped")
}

// StreamGeometry connects to a render server and calls fn for every
// geometry received until ctx is cancelled, the stream ends or fn fails.
func StreamGeometry(ctx context.Context, cc grpc.ClientConnInterface, fn func(*Geometry) error) error {
	stream, err := cc.NewStream(ctx, &renderServiceDesc.Streams[0], streamFullMethod,
		grpc.MaxCallRecvMsgSize(maxMsgSize))
	if err != nil {
		return fmt.Errorf("open render stream: %w", err)
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return fmt.Errorf("send stream request: %w", err)
	}
	if err := stream.CloseSend(); err != nil {
		return fmt.Errorf("close send: %w", err)
	}

	for {
		msg := new(wrapperspb.BytesValue)
		if err := stream.RecvMsg(msg); err != nil {
			return err
		}
		g, err := DecodeGeometry(msg.GetValue())
		if err != nil {
			return err
		}
		if err := fn(g); err != nil {
			return err
		}
	}
}
