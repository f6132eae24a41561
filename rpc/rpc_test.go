package rpc

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/wfunc/gombiful/game"
	"github.com/wfunc/gombiful/models"
	"github.com/wfunc/gombiful/services"
	"github.com/wfunc/gombiful/store"
)

func startAdmin(t *testing.T) (*AdminClient, *game.Service) {
	t.Helper()
	st := store.NewMemoryStore(0)
	results := services.NewResultsService(store.NewMemoryArchive())
	svc := game.NewService(st, game.DefaultSettings(), game.WithRecorder(results))
	t.Cleanup(svc.Close)

	lis := bufconn.Listen(1 << 20)
	srv := newServer(lis, NewAdminService(svc, results))
	go srv.Start()
	t.Cleanup(srv.Stop)

	client, err := Dial("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, svc
}

func TestAdminLifecycle(t *testing.T) {
	client, svc := startAdmin(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	songs := []models.Song{
		{ID: 1, Title: "a", Artist: "x", Year: 1970},
		{ID: 2, Title: "b", Artist: "y", Year: 1980},
		{ID: 3, Title: "c", Artist: "z", Year: 1990},
	}
	if err := svc.DJ("dj").CreateSession(ctx, "ABCD-EFGH", "Disco", songs); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if _, err := svc.Player("p1").Join(ctx, "Ann", "ABCD-EFGH"); err != nil {
		t.Fatalf("Join: %v", err)
	}

	got, err := client.GetSession(ctx, "ABCD-EFGH")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Session.DJName != "Disco" || len(got.Standings) != 1 {
		t.Errorf("reply = %+v", got)
	}
	if got.RemainingSongs != 2 {
		t.Errorf("RemainingSongs = %d, want 2", got.RemainingSongs)
	}

	if err := client.EndSession(ctx, "ABCD-EFGH"); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	err = client.EndSession(ctx, "ABCD-EFGH")
	if status.Code(err) != codes.FailedPrecondition {
		t.Errorf("second EndSession code = %v", status.Code(err))
	}

	recs, err := client.ListResults(ctx, 10)
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(recs) != 1 || recs[0].RoomCode != "ABCD-EFGH" {
		t.Errorf("results = %+v", recs)
	}
}

func TestAdminNotFound(t *testing.T) {
	client, _ := startAdmin(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.GetSession(ctx, "ZZZZ-ZZZZ"); status.Code(err) != codes.NotFound {
		t.Errorf("GetSession code = %v", status.Code(err))
	}
	if err := client.EndSession(ctx, "ZZZZ-ZZZZ"); status.Code(err) != codes.NotFound {
		t.Errorf("EndSession code = %v", status.Code(err))
	}
}
