package streets

import (
	"context"
	"errors"
	"testing"

	"street-dispatch/internal/logger"
	"street-dispatch/internal/models"
	"street-dispatch/internal/store/memstore"
)

var _ RepositoryInterface = (*memstore.StreetRepo)(nil)

func TestService_Add(t *testing.T) {
	store := memstore.New()
	svc := NewService(store.Streets(), logger.Discard())

	st, err := svc.Add(context.Background(), models.AddStreetRequest{Name: "  Main St "})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if st.ID != 1 || st.Name != "Main St" {
		t.Errorf("street = %+v, want id 1 named Main St", st)
	}
}

func TestService_Add_DuplicateRejected(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewService(store.Streets(), logger.Discard())

	if _, err := svc.Add(ctx, models.AddStreetRequest{Name: "Main St"}); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Add(ctx, models.AddStreetRequest{Name: "Main St"})
	if !errors.Is(err, models.ErrValidation) {
		t.Fatalf("duplicate error = %v, want validation error", err)
	}
	if n, _ := store.Streets().Count(ctx); n != 1 {
		t.Errorf("streets = %d, want 1", n)
	}
}

func TestService_Add_EmptyName(t *testing.T) {
	svc := NewService(memstore.New().Streets(), logger.Discard())

	_, err := svc.Add(context.Background(), models.AddStreetRequest{Name: "   "})
	var ve *models.ValidationError
	if !errors.As(err, &ve) || ve.Field != "name" {
		t.Fatalf("error = %v, want validation error on name", err)
	}
}
