package transport

import "sync"

// MockPoster is an in-memory PostingService for tests. Calls are recorded in
// order; errors and search results can be scripted per method.
type MockPoster struct {
	mu sync.Mutex

	// Scripted failures. When set, the corresponding method returns the
	// error without recording a successful call.
	PostStatusErr error
	PostImageErr  error
	PostMixedErr  error
	SearchErr     error

	// SearchResults is returned from Search, keyed by hashtag.
	SearchResults map[string][]Content

	StatusCalls []MockStatusCall
	ImageCalls  []MockImageCall
	MixedCalls  []MockMixedCall
	SearchCalls []string
}

type MockStatusCall struct {
	Text    string
	Hashtag string
}

type MockImageCall struct {
	Image   []byte
	Hashtag string
}

type MockMixedCall struct {
	Image   []byte
	Text    string
	Hashtag string
}

func NewMockPoster() *MockPoster {
	return &MockPoster{SearchResults: make(map[string][]Content)}
}

func (m *MockPoster) PostStatus(text, hashtag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PostStatusErr != nil {
		return m.PostStatusErr
	}
	m.StatusCalls = append(m.StatusCalls, MockStatusCall{Text: text, Hashtag: hashtag})
	return nil
}

func (m *MockPoster) PostImage(image []byte, hashtag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PostImageErr != nil {
		return m.PostImageErr
	}
	m.ImageCalls = append(m.ImageCalls, MockImageCall{Image: image, Hashtag: hashtag})
	return nil
}

func (m *MockPoster) PostImageWithText(image []byte, text, hashtag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PostMixedErr != nil {
		return m.PostMixedErr
	}
	m.MixedCalls = append(m.MixedCalls, MockMixedCall{Image: image, Text: text, Hashtag: hashtag})
	return nil
}

func (m *MockPoster) Search(hashtag string) ([]Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SearchCalls = append(m.SearchCalls, hashtag)
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	return m.SearchResults[hashtag], nil
}

// TotalPosts returns the number of successful posts of any kind.
func (m *MockPoster) TotalPosts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.StatusCalls) + len(m.ImageCalls) + len(m.MixedCalls)
}

// RecordingEvents captures every Events callback for assertions.
type RecordingEvents struct {
	mu sync.Mutex

	PackageStatuses []MockPackageStatus
	Received        []MockReceive
	LinkStatuses    []MockLinkStatus
	States          []State
}

type MockPackageStatus struct {
	Handle Handle
	Status PackageStatus
}

type MockReceive struct {
	LinkID string
	Params EncodingParameters
	Data   []byte
}

type MockLinkStatus struct {
	Handle Handle
	LinkID string
	Status LinkStatus
}

func NewRecordingEvents() *RecordingEvents {
	return &RecordingEvents{}
}

func (r *RecordingEvents) OnPackageStatusChanged(handle Handle, status PackageStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.PackageStatuses = append(r.PackageStatuses, MockPackageStatus{Handle: handle, Status: status})
}

func (r *RecordingEvents) OnReceive(linkID string, params EncodingParameters, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Received = append(r.Received, MockReceive{LinkID: linkID, Params: params, Data: data})
}

func (r *RecordingEvents) OnLinkStatusChanged(handle Handle, linkID string, status LinkStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.LinkStatuses = append(r.LinkStatuses, MockLinkStatus{Handle: handle, LinkID: linkID, Status: status})
}

func (r *RecordingEvents) OnStateChanged(state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.States = append(r.States, state)
}

// LastLinkStatus returns the most recent link status change, if any.
func (r *RecordingEvents) LastLinkStatus() (MockLinkStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.LinkStatuses) == 0 {
		return MockLinkStatus{}, false
	}
	return r.LinkStatuses[len(r.LinkStatuses)-1], true
}
