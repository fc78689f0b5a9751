package cmd

import (
	"bytes"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/tulibraries/cobindex/test"
)

type fakeSolr struct {
	mu      sync.Mutex
	commits int
	updates int
}

func (f *fakeSolr) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case strings.HasSuffix(r.URL.Path, "/select"):
		w.Write([]byte(`{"responseHeader":{"status":0},"response":{"numFound":0,"docs":[]}}`))
	case r.URL.Query().Get("commit") == "true":
		f.commits++
	default:
		ioutil.ReadAll(r.Body)
		f.updates++
	}
}

func newFakeSolr(t *testing.T) (*fakeSolr, string) {
	t.Helper()
	f := &fakeSolr{}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv.URL + "/solr/core"
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	rc := NewRootCommand(strings.NewReader(stdin), stdout, stderr)
	rc.SetArgs(args)
	err := rc.Execute()
	return stdout.String(), err
}

func TestCommitFromDeploymentEnv(t *testing.T) {
	f, u := newFakeSolr(t)
	t.Setenv("SOLR_URL", u)
	_, err := execute(t, "", "commit")
	test.ErrNil(t, err, "executing")
	test.MustBe(t, 1, f.commits)
}

func TestPrefixedEnvOverridesDeploymentEnv(t *testing.T) {
	f, u := newFakeSolr(t)
	t.Setenv("SOLR_URL", "http://127.0.0.1:1/solr/nowhere")
	t.Setenv("COBINDEX_SOLR_URL", u)
	_, err := execute(t, "", "commit")
	test.ErrNil(t, err, "executing")
	test.MustBe(t, 1, f.commits)
}

func TestFlagOverridesEnv(t *testing.T) {
	f, u := newFakeSolr(t)
	t.Setenv("COBINDEX_SOLR_URL", "http://127.0.0.1:1/solr/nowhere")
	_, err := execute(t, "", "commit", "--solr-url", u)
	test.ErrNil(t, err, "executing")
	test.MustBe(t, 1, f.commits)
}

func TestConfigFile(t *testing.T) {
	f, u := newFakeSolr(t)
	dir := test.MustTempDir(t)
	conf := test.MustWriteFile(t, dir, "cobindex.toml", "solr-url = \""+u+"\"\n")
	_, err := execute(t, "", "commit", "--config", conf)
	test.ErrNil(t, err, "executing")
	test.MustBe(t, 1, f.commits)
}

func TestNoSolrURL(t *testing.T) {
	t.Setenv("SOLR_URL", "")
	_, err := execute(t, "", "commit")
	if err == nil || !strings.Contains(err.Error(), "no solr url") {
		t.Fatalf("expected missing url error, got %v", err)
	}
}

const collection = `<collection xmlns="http://www.loc.gov/MARC21/slim">
  <record>
    <leader>01035cam a2200289 a 4500</leader>
    <controlfield tag="001">991000000019503811</controlfield>
    <controlfield tag="008">870122s1966    nyua     b    000 0 eng d</controlfield>
    <datafield tag="245" ind1="1" ind2="0">
      <subfield code="a">Profiles in courage /</subfield>
    </datafield>
  </record>
  <record>
    <leader>01035cam a2200289 a 4500</leader>
    <controlfield tag="001">991000000029503811</controlfield>
    <datafield tag="245" ind1="1" ind2="0">
      <subfield code="a">Host bibliographic record for boundwith item barcode 39074015</subfield>
    </datafield>
  </record>
</collection>`

func TestIngestStdin(t *testing.T) {
	f, u := newFakeSolr(t)
	logPath := test.MustTempDir(t) + "/ingest.log"
	out, err := execute(t, collection, "ingest", "-", "--solr-url", u, "--commit", "--batch-size", "10", "--log-path", logPath)
	test.ErrNil(t, err, "executing")
	test.MustBe(t, "read 2, skipped 1, written 1\n", out)
	test.MustBe(t, 1, f.updates)
	test.MustBe(t, 1, f.commits)
}

func TestIngestFullReindexFromEnv(t *testing.T) {
	_, u := newFakeSolr(t)
	t.Setenv("TRAJECT_FULL_REINDEX", "yes")
	logPath := test.MustTempDir(t) + "/ingest.log"
	// Neither record has holdings, so a full reindex leaves both out.
	out, err := execute(t, collection, "ingest", "-", "--solr-url", u, "--log-path", logPath)
	test.ErrNil(t, err, "executing")
	test.MustBe(t, "read 2, skipped 2, written 0\n", out)
	test.MustBe(t, true, IngestMain.FullReindex)
}

func TestDeploymentEnvValues(t *testing.T) {
	tests := []struct {
		reindex, dateCheck string
		expReindex         bool
		expDateCheck       bool
	}{
		{reindex: "yes", dateCheck: "yes", expReindex: true, expDateCheck: true},
		{reindex: "true", dateCheck: "false", expReindex: false, expDateCheck: true},
		{reindex: "no", dateCheck: "1", expReindex: false, expDateCheck: true},
		{reindex: "", dateCheck: "", expReindex: false, expDateCheck: false},
	}
	for i, tst := range tests {
		_, u := newFakeSolr(t)
		t.Setenv("TRAJECT_FULL_REINDEX", tst.reindex)
		t.Setenv("SOLR_DISABLE_UPDATE_DATE_CHECK", tst.dateCheck)
		logPath := test.MustTempDir(t) + "/ingest.log"
		_, err := execute(t, collection, "ingest", "-", "--solr-url", u, "--log-path", logPath)
		test.ErrNil(t, err, "executing")
		if IngestMain.FullReindex != tst.expReindex {
			t.Errorf("test %d: full reindex from %q = %v", i, tst.reindex, IngestMain.FullReindex)
		}
		if IngestMain.DisableUpdateDateCheck != tst.expDateCheck {
			t.Errorf("test %d: date check from %q = %v", i, tst.dateCheck, IngestMain.DisableUpdateDateCheck)
		}
	}
}

func TestSubcommandHelp(t *testing.T) {
	for name := range subcommandFns {
		t.Run(name, func(t *testing.T) {
			_, err := execute(t, "", name, "--help")
			test.ErrNil(t, err, "showing help")
		})
	}
}

func TestIngestNeedsPath(t *testing.T) {
	if _, err := execute(t, "", "ingest"); err == nil {
		t.Fatal("expected an error without a path")
	}
}

func TestS3NeedsBucket(t *testing.T) {
	_, u := newFakeSolr(t)
	_, err := execute(t, "", "ingest-s3", "--solr-url", u)
	if err == nil || !strings.Contains(err.Error(), "no bucket given") {
		t.Fatalf("expected missing bucket error, got %v", err)
	}
}
