package handler

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func newGRPCClient(t *testing.T) (*fixture, *OrderServiceClient) {
	t.Helper()
	f := newFixture(t)

	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	RegisterOrderServiceServer(server, NewGRPCHandler(f.svc, f.board, f.menu))
	go server.Serve(lis)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial bufnet: %v", err)
	}

	t.Cleanup(func() {
		conn.Close()
		server.Stop()
	})
	return f, NewOrderServiceClient(conn)
}

func TestGRPC_PlaceAndAdvance(t *testing.T) {
	f, client := newGRPCClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	placed, err := client.PlaceOrder(ctx, &PlaceOrderRequest{
		RequestID: "grpc-1",
		TableID:   "9",
		TableName: "Patio",
		Items:     []LineRequest{{MenuItemID: "pho", Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if placed.Order.TableName != "Patio" || placed.Order.TotalAmount != "9.50" {
		t.Errorf("unexpected order %+v", placed.Order)
	}

	advanced, err := client.AdvanceOrder(ctx, &AdvanceOrderRequest{OrderID: placed.Order.ID})
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if advanced.Order.Status != "preparing" {
		t.Errorf("expected preparing, got %s", advanced.Order.Status)
	}

	got, err := client.GetOrder(ctx, &GetOrderRequest{OrderID: placed.Order.ID})
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if got.Order.Status != "preparing" {
		t.Errorf("expected stored preparing, got %s", got.Order.Status)
	}

	waitFor(t, "board", func() bool { return f.board.Stats().TotalOrders == 1 })
	board, err := client.GetBoard(ctx, &GetBoardRequest{})
	if err != nil {
		t.Fatalf("get board: %v", err)
	}
	if board.Board.Stats.TotalOrders != 1 {
		t.Errorf("unexpected board %+v", board.Board)
	}
}

func TestGRPC_ErrorCodes(t *testing.T) {
	_, client := newGRPCClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.PlaceOrder(ctx, &PlaceOrderRequest{TableID: "1"})
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("empty cart: expected InvalidArgument, got %v", err)
	}

	placed, err := client.PlaceOrder(ctx, &PlaceOrderRequest{
		RequestID: "dup",
		TableID:   "1",
		Items:     []LineRequest{{MenuItemID: "tea", Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	_, err = client.PlaceOrder(ctx, &PlaceOrderRequest{
		RequestID: "dup",
		TableID:   "1",
		Items:     []LineRequest{{MenuItemID: "tea", Quantity: 2}},
	})
	if status.Code(err) != codes.AlreadyExists {
		t.Errorf("duplicate: expected AlreadyExists, got %v", err)
	}

	_, err = client.AdvanceOrder(ctx, &AdvanceOrderRequest{OrderID: placed.Order.ID, Status: "completed"})
	if status.Code(err) != codes.FailedPrecondition {
		t.Errorf("skip: expected FailedPrecondition, got %v", err)
	}

	_, err = client.GetOrder(ctx, &GetOrderRequest{OrderID: "missing"})
	if status.Code(err) != codes.NotFound {
		t.Errorf("missing: expected NotFound, got %v", err)
	}
}
