package service

import (
	"context"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/peoplelane/esign/internal/errs"
	"github.com/peoplelane/esign/internal/model"
	"github.com/peoplelane/esign/internal/provider"
	"github.com/peoplelane/esign/internal/repository"
)

// fakeDocs is an in-memory DocumentRepository mirroring the postgres
// implementation's versioning and merge behavior.
type fakeDocs struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]*model.Document
	byReq map[string]uuid.UUID

	// updateErrs are popped one per UpdateSignature call; a nil entry means
	// the call proceeds normally.
	updateErrs []error
	getErr     error
	updates    int
}

func newFakeDocs(docs ...*model.Document) *fakeDocs {
	f := &fakeDocs{byID: map[uuid.UUID]*model.Document{}, byReq: map[string]uuid.UUID{}}
	for _, d := range docs {
		cp := *d
		f.byID[d.ID] = &cp
		if d.SignatureRequestID != "" {
			f.byReq[d.SignatureRequestID] = d.ID
		}
	}
	return f
}

func (f *fakeDocs) Create(_ context.Context, d *model.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *d
	f.byID[d.ID] = &cp
	if d.SignatureRequestID != "" {
		f.byReq[d.SignatureRequestID] = d.ID
	}
	return nil
}

func (f *fakeDocs) Get(_ context.Context, id uuid.UUID) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	d, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (f *fakeDocs) GetByRequestID(_ context.Context, requestID string) (*model.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	id, ok := f.byReq[requestID]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *f.byID[id]
	return &cp, nil
}

func (f *fakeDocs) UpdateSignature(_ context.Context, id uuid.UUID, patch repository.SignaturePatch) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if len(f.updateErrs) > 0 {
		err := f.updateErrs[0]
		f.updateErrs = f.updateErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	d, ok := f.byID[id]
	if !ok {
		return 0, errs.ErrNotFound
	}
	if d.Ver != patch.BaseVer {
		return 0, errs.ErrVersionConflict
	}
	d.SignatureStatus = patch.Status
	if patch.RequestID != nil {
		if d.SignatureRequestID != "" {
			delete(f.byReq, d.SignatureRequestID)
		}
		d.SignatureRequestID = *patch.RequestID
		if *patch.RequestID != "" {
			f.byReq[*patch.RequestID] = id
		}
	}
	d.Metadata.Merge(patch.Metadata)
	d.Ver++
	return d.Ver, nil
}

func (f *fakeDocs) doc(id uuid.UUID) *model.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *f.byID[id]
	return &cp
}

// fakeAudit is an in-memory AuditRepository with failure injection.
type fakeAudit struct {
	mu       sync.Mutex
	records  []*model.AuditRecord
	failNext int // next N appends fail
}

func (f *fakeAudit) Append(_ context.Context, rec *model.AuditRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext > 0 {
		f.failNext--
		return errTransient
	}
	cp := *rec
	f.records = append(f.records, &cp)
	return nil
}

func (f *fakeAudit) ListByDocument(_ context.Context, documentID uuid.UUID) ([]*model.AuditRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.AuditRecord
	for _, r := range f.records {
		if r.DocumentID == documentID {
			out = append(out, r)
		}
	}
	return out, nil
}

// fakeNotifs is an in-memory NotificationRepository with failure injection.
type fakeNotifs struct {
	mu       sync.Mutex
	records  []*model.NotificationRecord
	failNext int
}

func (f *fakeNotifs) Append(_ context.Context, rec *model.NotificationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext > 0 {
		f.failNext--
		return errTransient
	}
	cp := *rec
	f.records = append(f.records, &cp)
	return nil
}

// fakeProvider records calls to the signing provider.
type fakeProvider struct {
	mu        sync.Mutex
	creates   []provider.CreateRequest
	cancels   []string
	createErr error
	cancelErr error
	requestID string
}

func (f *fakeProvider) CreateSignatureRequest(_ context.Context, req provider.CreateRequest) (*provider.CreateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.creates = append(f.creates, req)
	id := f.requestID
	if id == "" {
		id = "req-1"
	}
	return &provider.CreateResult{RequestID: id, SigningURL: "https://sign.example/s/" + id}, nil
}

func (f *fakeProvider) CancelSignatureRequest(_ context.Context, requestID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.cancels = append(f.cancels, requestID)
	return nil
}

// fakeFilter is a scripted ReplayFilter.
type fakeFilter struct {
	fresh bool
	err   error
	calls int
}

func (f *fakeFilter) IsNew(context.Context, string, string, time.Time) (bool, error) {
	f.calls++
	return f.fresh, f.err
}

type transientError struct{}

func (transientError) Error() string { return "transient fault" }

var errTransient = transientError{}

func newDoc(status model.SignatureStatus, requestID string) *model.Document {
	id, _ := uuid.NewV4()
	owner, _ := uuid.NewV4()
	return &model.Document{
		ID:                 id,
		OwnerID:            owner,
		Title:              "Offer Letter",
		SignatureRequired:  true,
		SignatureStatus:    status,
		SignatureRequestID: requestID,
		Ver:                3,
	}
}
