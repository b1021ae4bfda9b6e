package deployments

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

type ruleFile struct {
	Groups []struct {
		Name  string `yaml:"name"`
		Rules []struct {
			Alert  string            `yaml:"alert"`
			Record string            `yaml:"record"`
			Expr   string            `yaml:"expr"`
			Labels map[string]string `yaml:"labels"`
		} `yaml:"rules"`
	} `yaml:"groups"`
}

func TestPrometheusRulesContainExpectedAlerts(t *testing.T) {
	rules := loadRuleFile(t, "askora_rules.yaml")

	alerts := map[string]string{}
	for _, group := range rules.Groups {
		for _, rule := range group.Rules {
			if rule.Alert == "" {
				continue
			}
			if strings.TrimSpace(rule.Expr) == "" {
				t.Fatalf("alert %q has no expr", rule.Alert)
			}
			alerts[rule.Alert] = rule.Expr
			if sev := rule.Labels["severity"]; sev != "warning" && sev != "critical" {
				t.Fatalf("alert %q severity = %q", rule.Alert, sev)
			}
		}
	}

	required := map[string]string{
		"AskoraTranslationFailureRateHigh":  "askora:slo_translation_failure_ratio_15m",
		"AskoraTranslationTimeoutsDetected": "askora:slo_translation_timeouts_15m",
		"AskoraTranslateLatencyP95High":     "askora:slo_translate_latency_seconds_p95",
		"AskoraConnectionFailureRateHigh":   "askora:slo_connection_failure_ratio_15m",
		"AskoraInvalidCredentialsSpike":     "askora:slo_invalid_credentials_15m",
		"AskoraSessionsLeaking":             "askora:slo_open_sessions",
		"AskoraHTTPErrorRateHigh":           "askora:slo_http_error_rate_5m",
	}
	for alert, metric := range required {
		expr, ok := alerts[alert]
		if !ok {
			t.Fatalf("rules missing alert %q", alert)
		}
		if !strings.Contains(expr, metric) {
			t.Fatalf("alert %q expr %q does not reference %q", alert, expr, metric)
		}
	}
}

func TestPrometheusRecordingRulesUseExportedMetrics(t *testing.T) {
	rules := loadRuleFile(t, "askora_recording_rules.yaml")

	records := map[string]string{}
	for _, group := range rules.Groups {
		for _, rule := range group.Rules {
			if rule.Record != "" {
				records[rule.Record] = rule.Expr
			}
		}
	}

	exported := []string{
		"askora_translations_total",
		"askora_connection_attempts_total",
		"askora_stage_duration_seconds_bucket",
		"askora_open_sessions",
		"askora_http_requests_total",
	}
	for _, record := range []string{
		"askora:slo_translation_failure_ratio_15m",
		"askora:slo_translation_timeouts_15m",
		"askora:slo_translate_latency_seconds_p95",
		"askora:slo_connection_failure_ratio_15m",
		"askora:slo_invalid_credentials_15m",
		"askora:slo_execute_latency_seconds_p95",
		"askora:slo_open_sessions",
		"askora:slo_http_error_rate_5m",
	} {
		expr, ok := records[record]
		if !ok {
			t.Fatalf("recording rules missing record %q", record)
		}
		found := false
		for _, metric := range exported {
			if strings.Contains(expr, metric) {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("record %q expr %q references no exported metric", record, expr)
		}
	}
}

func TestPrometheusScrapeExampleContainsMetricsPathAndRules(t *testing.T) {
	text := readAsset(t, "observability", "prometheus", "prometheus-scrape.example.yaml")

	for _, token := range []string{
		"metrics_path: /v1/metrics",
		"askora_rules.yaml",
		"askora_recording_rules.yaml",
		"job_name: askora-api",
	} {
		if !strings.Contains(text, token) {
			t.Fatalf("scrape example missing %q", token)
		}
	}
}

func TestAlertmanagerExampleContainsSeverityRouting(t *testing.T) {
	text := readAsset(t, "observability", "alertmanager", "alertmanager.example.yaml")

	var decoded map[string]any
	if err := yaml.Unmarshal([]byte(text), &decoded); err != nil {
		t.Fatalf("alertmanager example parse error: %v", err)
	}
	for _, token := range []string{
		"receiver: askora-default",
		"severity=\"critical\"",
		"severity=\"warning\"",
		"name: askora-critical",
		"name: askora-warning",
		"inhibit_rules:",
		"group_by: [alertname, service, severity]",
	} {
		if !strings.Contains(text, token) {
			t.Fatalf("alertmanager example missing token %q", token)
		}
	}
}

func loadRuleFile(t *testing.T, name string) ruleFile {
	t.Helper()
	var rules ruleFile
	if err := yaml.Unmarshal([]byte(readAsset(t, "observability", "prometheus", name)), &rules); err != nil {
		t.Fatalf("parse %s: %v", name, err)
	}
	if len(rules.Groups) == 0 {
		t.Fatalf("%s has no rule groups", name)
	}
	return rules
}

func readAsset(t *testing.T, parts ...string) string {
	t.Helper()
	path := filepath.Join(append([]string{repoRoot(t), "deployments"}, parts...)...)
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(content)
}

func repoRoot(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(filename), ".."))
}
