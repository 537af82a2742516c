package repository

import (
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/camden-git/siteguard/database"
	"github.com/camden-git/siteguard/detection"
	"github.com/camden-git/siteguard/logger"
	"github.com/camden-git/siteguard/models"
	"github.com/camden-git/siteguard/permissions"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitGormDB("file::memory:", logger.Nop())
	if err != nil {
		t.Fatalf("InitGormDB: %v", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		t.Fatalf("AutoMigrateModels: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func registerUser(t *testing.T, repo UserRepository, username, org string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com"}
	if err := u.SetPassword("password"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	if err := repo.Register(u, org); err != nil {
		t.Fatalf("Register %s: %v", username, err)
	}
	return u
}

func TestRegisterFirstMemberIsAdmin(t *testing.T) {
	repo := NewGormUserRepository(openTestDB(t))

	first := registerUser(t, repo, "ada", "north")
	second := registerUser(t, repo, "bob", "north")
	other := registerUser(t, repo, "cy", "south")

	if first.Role != permissions.RoleAdmin || second.Role != permissions.RoleUser || other.Role != permissions.RoleAdmin {
		t.Fatalf("roles = %s, %s, %s", first.Role, second.Role, other.Role)
	}
	if first.OrganizationID != second.OrganizationID || first.OrganizationID == other.OrganizationID {
		t.Fatalf("organization ids = %d, %d, %d", first.OrganizationID, second.OrganizationID, other.OrganizationID)
	}

	dup := &models.User{Username: "ada", Email: "new@example.com", PasswordHash: "x"}
	if err := repo.Register(dup, "north"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("duplicate err = %v", err)
	}

	got, err := repo.GetByUsername("bob")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if got.Organization == nil || got.Organization.Name != "north" {
		t.Fatalf("organization not preloaded: %+v", got.Organization)
	}
	members, err := repo.ListByOrganization(first.OrganizationID)
	if err != nil || len(members) != 2 {
		t.Fatalf("members = %d, err = %v", len(members), err)
	}
}

func vector(seed float32) detection.Embedding {
	v := make(detection.Embedding, detection.EmbeddingSize)
	for i := range v {
		v[i] = seed
	}
	return v
}

func TestFaceEmbeddingReplace(t *testing.T) {
	db := openTestDB(t)
	user := registerUser(t, NewGormUserRepository(db), "ada", "north")
	repo := NewFaceEmbeddingRepository(db)

	first := &models.FaceEmbedding{UserID: user.ID, OrganizationID: user.OrganizationID, EmbeddingModel: "stub"}
	first.SetEmbedding(vector(0.1))
	if err := repo.Replace(first); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	second := &models.FaceEmbedding{UserID: user.ID, OrganizationID: user.OrganizationID, EmbeddingModel: "stub"}
	second.SetEmbedding(vector(0.2))
	if err := repo.Replace(second); err != nil {
		t.Fatalf("second Replace: %v", err)
	}

	gallery, err := repo.ListByOrganization(user.OrganizationID)
	if err != nil {
		t.Fatalf("ListByOrganization: %v", err)
	}
	if len(gallery) != 1 {
		t.Fatalf("gallery size = %d, want 1 active embedding", len(gallery))
	}
	if got := gallery[0].GetEmbedding(); got[0] != 0.2 {
		t.Fatalf("active embedding starts with %g", got[0])
	}

	empty := &models.FaceEmbedding{UserID: user.ID, OrganizationID: user.OrganizationID}
	if err := repo.Replace(empty); err == nil {
		t.Fatalf("empty embedding stored")
	}

	if err := repo.DeleteByUserID(user.ID); err != nil {
		t.Fatalf("DeleteByUserID: %v", err)
	}
	if _, err := repo.GetByUserID(user.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("GetByUserID after delete: %v", err)
	}
}

func TestAttendanceCheckOutOnce(t *testing.T) {
	db := openTestDB(t)
	user := registerUser(t, NewGormUserRepository(db), "ada", "north")
	repo := NewAttendanceRepository(db)

	in := time.Date(2026, 5, 4, 8, 30, 0, 0, time.UTC)
	rec := &models.AttendanceRecord{UserID: user.ID, OrganizationID: user.OrganizationID, CheckInTime: in, Method: models.AttendanceMethodFace}
	if err := repo.Create(rec); err != nil {
		t.Fatalf("Create: %v", err)
	}

	dayStart := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	open, err := repo.FindOpenSince(user.ID, dayStart)
	if err != nil || open.ID != rec.ID {
		t.Fatalf("FindOpenSince = %+v, %v", open, err)
	}
	if _, err := repo.FindOpenSince(user.ID, dayStart.AddDate(0, 0, 1)); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("open record from the previous day found: %v", err)
	}

	if err := repo.CheckOut(rec.ID, in.Add(8*time.Hour)); err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	if err := repo.CheckOut(rec.ID, in.Add(9*time.Hour)); !errors.Is(err, ErrAlreadyCheckedOut) {
		t.Fatalf("second CheckOut err = %v", err)
	}
	if err := repo.CheckOut(9999, in); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("missing record err = %v", err)
	}

	recs, err := repo.ListByUser(user.ID, 10)
	if err != nil || len(recs) != 1 {
		t.Fatalf("ListByUser = %d, %v", len(recs), err)
	}
	if recs[0].Duration() != "08:00:00" {
		t.Fatalf("duration = %q", recs[0].Duration())
	}
	if _, err := repo.FindOpenSince(user.ID, dayStart); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("closed record still open: %v", err)
	}
}

func TestPlateUpsertAndLookup(t *testing.T) {
	db := openTestDB(t)
	user := registerUser(t, NewGormUserRepository(db), "ada", "north")
	repo := NewPlateRepository(db)

	p := &models.VehiclePlate{OrganizationID: user.OrganizationID, PlateKey: "ABC1234", PlateNumber: "ABC-1234", IsAuthorized: true}
	if err := repo.Upsert(p); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	update := &models.VehiclePlate{OrganizationID: user.OrganizationID, PlateKey: "ABC1234", PlateNumber: "ABC1234", OwnerName: "Ada", IsAuthorized: false}
	if err := repo.Upsert(update); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	if update.ID != p.ID {
		t.Fatalf("upsert created a second row: %d vs %d", update.ID, p.ID)
	}

	got, err := repo.GetByKey(user.OrganizationID, "ABC1234")
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	if got.IsAuthorized || got.OwnerName != "Ada" {
		t.Fatalf("plate not updated: %+v", got)
	}
	if _, err := repo.GetByKey(user.OrganizationID+1, "ABC1234"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("plate visible to another organization: %v", err)
	}

	for i := 0; i < 3; i++ {
		entry := &models.PlateDetectionLog{OrganizationID: user.OrganizationID, PlateNumber: "ABC-1234", DetectedAt: time.Now().UTC().Add(time.Duration(i) * time.Minute)}
		if err := repo.CreateLog(entry); err != nil {
			t.Fatalf("CreateLog: %v", err)
		}
	}
	logs, err := repo.ListLogs(user.OrganizationID, 2)
	if err != nil || len(logs) != 2 {
		t.Fatalf("ListLogs = %d, %v", len(logs), err)
	}
	if !logs[0].DetectedAt.After(logs[1].DetectedAt) {
		t.Fatalf("logs not newest first")
	}
}

func TestParkingSpacesNaturalOrderAndChanges(t *testing.T) {
	db := openTestDB(t)
	user := registerUser(t, NewGormUserRepository(db), "ada", "north")
	repo := NewParkingRepository(db)

	for _, id := range []string{"A10", "A2", "B1", "A1"} {
		if err := repo.CreateSpace(&models.ParkingSpace{OrganizationID: user.OrganizationID, SpaceIdentifier: id}); err != nil {
			t.Fatalf("CreateSpace %s: %v", id, err)
		}
	}
	spaces, err := repo.ListSpaces(user.OrganizationID)
	if err != nil {
		t.Fatalf("ListSpaces: %v", err)
	}
	var order []string
	for _, s := range spaces {
		order = append(order, s.SpaceIdentifier)
	}
	want := []string{"A1", "A2", "A10", "B1"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}

	at := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	changes := []SpaceChange{{SpaceID: spaces[0].ID, Identifier: "A1", Occupied: true, Fraction: 0.4}}
	if err := repo.ApplyChanges(user.OrganizationID, changes, "captures/parking/x.jpg", at); err != nil {
		t.Fatalf("ApplyChanges: %v", err)
	}
	spaces, _ = repo.ListSpaces(user.OrganizationID)
	if !spaces[0].IsOccupied || spaces[0].LastUpdated == nil || spaces[1].IsOccupied {
		t.Fatalf("spaces after change: %+v", spaces[:2])
	}
	logs, err := repo.ListLogs(user.OrganizationID, 10)
	if err != nil || len(logs) != 1 || logs[0].SpaceIdentifier != "A1" {
		t.Fatalf("logs = %+v, %v", logs, err)
	}

	bad := []SpaceChange{
		{SpaceID: spaces[1].ID, Identifier: "A2", Occupied: true},
		{SpaceID: 9999, Identifier: "Z9", Occupied: true},
	}
	if err := repo.ApplyChanges(user.OrganizationID, bad, "", at); err == nil {
		t.Fatalf("change to unknown space accepted")
	}
	spaces, _ = repo.ListSpaces(user.OrganizationID)
	if spaces[1].IsOccupied {
		t.Fatalf("failed batch was partially applied")
	}
}
