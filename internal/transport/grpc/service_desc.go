package grpc

import (
	"context"

	"google.golang.org/grpc"
)

const (
	BookingServiceName = "agenda.v1.BookingService"

	listAvailableSlotsMethod = "/" + BookingServiceName + "/ListAvailableSlots"
	createAppointmentMethod  = "/" + BookingServiceName + "/CreateAppointment"
)

type BookingServiceServer interface {
	ListAvailableSlots(ctx context.Context, req *ListAvailableSlotsRequest) (*ListAvailableSlotsResponse, error)
	CreateAppointment(ctx context.Context, req *CreateAppointmentRequest) (*CreateAppointmentResponse, error)
}

// BookingServiceDesc describes the booking service for grpc.Server.RegisterService.
// Messages travel as JSON; see CodecName.
var BookingServiceDesc = grpc.ServiceDesc{
	ServiceName: BookingServiceName,
	HandlerType: (*BookingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListAvailableSlots", Handler: listAvailableSlotsHandler},
		{MethodName: "CreateAppointment", Handler: createAppointmentHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterBookingServiceServer(s grpc.ServiceRegistrar, srv BookingServiceServer) {
	s.RegisterService(&BookingServiceDesc, srv)
}

func listAvailableSlotsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListAvailableSlotsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BookingServiceServer).ListAvailableSlots(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listAvailableSlotsMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BookingServiceServer).ListAvailableSlots(ctx, req.(*ListAvailableSlotsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func createAppointmentHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CreateAppointmentRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BookingServiceServer).CreateAppointment(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: createAppointmentMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BookingServiceServer).CreateAppointment(ctx, req.(*CreateAppointmentRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// BookingServiceClient calls the booking service over a connection that negotiates the JSON codec.
type BookingServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewBookingServiceClient(cc grpc.ClientConnInterface) *BookingServiceClient {
	return &BookingServiceClient{cc: cc}
}

func (c *BookingServiceClient) ListAvailableSlots(ctx context.Context, req *ListAvailableSlotsRequest, opts ...grpc.CallOption) (*ListAvailableSlotsResponse, error) {
	out := new(ListAvailableSlotsResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, listAvailableSlotsMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *BookingServiceClient) CreateAppointment(ctx context.Context, req *CreateAppointmentRequest, opts ...grpc.CallOption) (*CreateAppointmentResponse, error) {
	out := new(CreateAppointmentResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, createAppointmentMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
