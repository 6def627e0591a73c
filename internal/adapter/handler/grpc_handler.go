package handler

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/rl1809/voice-inventory/internal/core/domain"
	"github.com/rl1809/voice-inventory/internal/core/service"
)

const serviceName = "inventory.v1.InventoryService"

type CommandRequest struct {
	RequestID string `json:"request_id"`
	Text      string `json:"text"`
	Language  string `json:"language"`
}

type ListProductsRequest struct{}

type ProductRequest struct {
	Name string `json:"name"`
}

// InventoryServer is the gRPC surface of the inventory service.
type InventoryServer interface {
	ExecuteCommand(ctx context.Context, req *CommandRequest) (*service.CommandResponse, error)
	ListProducts(ctx context.Context, req *ListProductsRequest) (*service.Inventory, error)
	GetProduct(ctx context.Context, req *ProductRequest) (*service.ItemView, error)
}

type GRPCHandler struct {
	svc *service.CommandService
	log *zap.Logger
}

func NewGRPCHandler(svc *service.CommandService, log *zap.Logger) *GRPCHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &GRPCHandler{svc: svc, log: log}
}

// ExecuteCommand reports command-level failures in the response body. Only
// infrastructure failures become gRPC status errors.
func (h *GRPCHandler) ExecuteCommand(ctx context.Context, req *CommandRequest) (*service.CommandResponse, error) {
	if req.Text == "" {
		return &service.CommandResponse{Success: false, Message: "missing required fields"}, nil
	}

	resp, err := h.svc.Execute(ctx, service.CommandRequest{
		RequestID: req.RequestID,
		Text:      req.Text,
		Language:  req.Language,
	})
	if err != nil {
		if isCommandError(err) {
			return &resp, nil
		}
		h.log.Error("grpc command failed", zap.Error(err))
		return nil, status.Error(grpcCode(err), publicMessage(err))
	}
	return &resp, nil
}

func isCommandError(err error) bool {
	return errors.Is(err, domain.ErrParseIncomplete) ||
		errors.Is(err, domain.ErrParseUnknown) ||
		errors.Is(err, domain.ErrProductNotFound) ||
		errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, service.ErrDuplicateRequest)
}

func (h *GRPCHandler) ListProducts(ctx context.Context, _ *ListProductsRequest) (*service.Inventory, error) {
	inv, err := h.svc.ListProducts(ctx)
	if err != nil {
		return nil, status.Error(grpcCode(err), publicMessage(err))
	}
	return &inv, nil
}

func (h *GRPCHandler) GetProduct(ctx context.Context, req *ProductRequest) (*service.ItemView, error) {
	item, err := h.svc.GetProduct(ctx, req.Name)
	if err != nil {
		return nil, status.Error(grpcCode(err), publicMessage(err))
	}
	return &item, nil
}

func RegisterInventoryServer(s grpc.ServiceRegistrar, srv InventoryServer) {
	s.RegisterService(&InventoryServiceDesc, srv)
}

var InventoryServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*InventoryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ExecuteCommand", Handler: executeCommandHandler},
		{MethodName: "ListProducts", Handler: listProductsHandler},
		{MethodName: "GetProduct", Handler: getProductHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func executeCommandHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CommandRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryServer).ExecuteCommand(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/ExecuteCommand"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InventoryServer).ExecuteCommand(ctx, req.(*CommandRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listProductsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListProductsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryServer).ListProducts(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/ListProducts"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InventoryServer).ListProducts(ctx, req.(*ListProductsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getProductHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ProductRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InventoryServer).GetProduct(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/GetProduct"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InventoryServer).GetProduct(ctx, req.(*ProductRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// InventoryClient calls InventoryServer over a connection using the JSON codec.
type InventoryClient struct {
	cc grpc.ClientConnInterface
}

func NewInventoryClient(cc grpc.ClientConnInterface) *InventoryClient {
	return &InventoryClient{cc: cc}
}

func (c *InventoryClient) ExecuteCommand(ctx context.Context, in *CommandRequest, opts ...grpc.CallOption) (*service.CommandResponse, error) {
	out := new(service.CommandResponse)
	if err := c.invoke(ctx, "ExecuteCommand", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *InventoryClient) ListProducts(ctx context.Context, in *ListProductsRequest, opts ...grpc.CallOption) (*service.Inventory, error) {
	out := new(service.Inventory)
	if err := c.invoke(ctx, "ListProducts", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *InventoryClient) GetProduct(ctx context.Context, in *ProductRequest, opts ...grpc.CallOption) (*service.ItemView, error) {
	out := new(service.ItemView)
	if err := c.invoke(ctx, "GetProduct", in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *InventoryClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(codecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+serviceName+"/"+method, in, out, opts...)
}
