package handler

import (
	"context"
	"log"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/table-order/internal/core/domain"
	"github.com/rl1809/table-order/internal/core/service"
)

type PlaceOrderRequest struct {
	RequestID string        `json:"request_id"`
	TableID   string        `json:"table_id"`
	TableName string        `json:"table_name"`
	Items     []LineRequest `json:"items"`
}

type AdvanceOrderRequest struct {
	OrderID string `json:"order_id"`
	// Status is the requested target; empty means the next step.
	Status string `json:"status,omitempty"`
}

type GetOrderRequest struct {
	OrderID string `json:"order_id"`
}

type GetBoardRequest struct {
	Recent int `json:"recent"`
}

type OrderReply struct {
	Order OrderDTO `json:"order"`
}

type BoardReply struct {
	Board BoardDTO `json:"board"`
}

// OrderServiceServer is served over gRPC with the JSON codec.
type OrderServiceServer interface {
	PlaceOrder(context.Context, *PlaceOrderRequest) (*OrderReply, error)
	AdvanceOrder(context.Context, *AdvanceOrderRequest) (*OrderReply, error)
	GetOrder(context.Context, *GetOrderRequest) (*OrderReply, error)
	GetBoard(context.Context, *GetBoardRequest) (*BoardReply, error)
}

type GRPCHandler struct {
	orderService *service.OrderService
	board        *service.Board
	menu         *service.Menu
}

func NewGRPCHandler(orderService *service.OrderService, board *service.Board, menu *service.Menu) *GRPCHandler {
	return &GRPCHandler{orderService: orderService, board: board, menu: menu}
}

func grpcError(err error) error {
	_, code, message := classify(err)
	if code == codes.Internal || code == codes.Unavailable {
		log.Printf("grpc: %v", err)
	}
	return status.Error(code, message)
}

func (h *GRPCHandler) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*OrderReply, error) {
	tableID := strings.TrimSpace(req.TableID)
	if tableID == "" {
		return nil, status.Error(codes.InvalidArgument, "missing table")
	}
	table := domain.TableRef{ID: tableID, Name: strings.TrimSpace(req.TableName)}
	if table.Name == "" {
		table.Name = "Table " + tableID
	}

	cart := service.NewCart()
	for _, line := range req.Items {
		if err := h.menu.FillCart(cart, line.MenuItemID, line.Quantity); err != nil {
			return nil, grpcError(err)
		}
	}

	order, err := h.orderService.PlaceOrder(ctx, req.RequestID, cart, table)
	if err != nil {
		return nil, grpcError(err)
	}
	return &OrderReply{Order: toOrderDTO(order)}, nil
}

func (h *GRPCHandler) AdvanceOrder(ctx context.Context, req *AdvanceOrderRequest) (*OrderReply, error) {
	var (
		order domain.Order
		err   error
	)
	if req.Status == "" {
		order, err = h.orderService.AdvanceNext(ctx, req.OrderID)
	} else {
		order, err = h.orderService.AdvanceStatus(ctx, req.OrderID, domain.OrderStatus(req.Status))
	}
	if err != nil {
		return nil, grpcError(err)
	}
	return &OrderReply{Order: toOrderDTO(order)}, nil
}

func (h *GRPCHandler) GetOrder(ctx context.Context, req *GetOrderRequest) (*OrderReply, error) {
	order, err := h.orderService.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, grpcError(err)
	}
	return &OrderReply{Order: toOrderDTO(order)}, nil
}

func (h *GRPCHandler) GetBoard(ctx context.Context, req *GetBoardRequest) (*BoardReply, error) {
	recent := req.Recent
	if recent <= 0 {
		recent = 5
	}
	return &BoardReply{Board: BoardDTO{
		Stats:        toStatsDTO(h.board.Stats()),
		Unread:       h.board.Notifications().UnreadCount(),
		Muted:        h.board.Alert().Muted(),
		RecentOrders: toOrderDTOs(h.board.RecentOrders(recent)),
	}}, nil
}

const orderServiceName = "tableorder.OrderService"

func unaryHandler[Req any, Resp any](method string, call func(OrderServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(OrderServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + orderServiceName + "/" + method,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(OrderServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// OrderServiceDesc registers OrderServiceServer without generated stubs.
var OrderServiceDesc = grpc.ServiceDesc{
	ServiceName: orderServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("PlaceOrder", OrderServiceServer.PlaceOrder),
		unaryHandler("AdvanceOrder", OrderServiceServer.AdvanceOrder),
		unaryHandler("GetOrder", OrderServiceServer.GetOrder),
		unaryHandler("GetBoard", OrderServiceServer.GetBoard),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "tableorder/order_service",
}

func RegisterOrderServiceServer(s grpc.ServiceRegistrar, srv OrderServiceServer) {
	s.RegisterService(&OrderServiceDesc, srv)
}

// OrderServiceClient calls OrderService using the JSON codec.
type OrderServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewOrderServiceClient(cc grpc.ClientConnInterface) *OrderServiceClient {
	return &OrderServiceClient{cc: cc}
}

func (c *OrderServiceClient) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(JSONCodecName)}, opts...)
	return c.cc.Invoke(ctx, "/"+orderServiceName+"/"+method, in, out, opts...)
}

func (c *OrderServiceClient) PlaceOrder(ctx context.Context, in *PlaceOrderRequest, opts ...grpc.CallOption) (*OrderReply, error) {
	out := new(OrderReply)
	if err := c.invoke(ctx, "PlaceOrder", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderServiceClient) AdvanceOrder(ctx context.Context, in *AdvanceOrderRequest, opts ...grpc.CallOption) (*OrderReply, error) {
	out := new(OrderReply)
	if err := c.invoke(ctx, "AdvanceOrder", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderServiceClient) GetOrder(ctx context.Context, in *GetOrderRequest, opts ...grpc.CallOption) (*OrderReply, error) {
	out := new(OrderReply)
	if err := c.invoke(ctx, "GetOrder", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderServiceClient) GetBoard(ctx context.Context, in *GetBoardRequest, opts ...grpc.CallOption) (*BoardReply, error) {
	out := new(BoardReply)
	if err := c.invoke(ctx, "GetBoard", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
