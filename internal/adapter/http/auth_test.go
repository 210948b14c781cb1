package http_test

import (
	"fmt"
	"net/http"
	"testing"

	adapter "github.com/neomorfeo/talladmin/internal/adapter/http"
)

func startFlow(t *testing.T, s *testStack, kind string) adapter.FlowResponse {
	t.Helper()
	resp := doRequest(t, http.MethodPost, s.srv.URL+"/api/v1/auth/"+kind, "")
	expectStatus(t, resp, http.StatusCreated)
	return decode[adapter.FlowResponse](t, resp)
}

func flowStep(t *testing.T, s *testStack, id, suffix, body string) *http.Response {
	t.Helper()
	return doRequest(t, http.MethodPost, s.srv.URL+"/api/v1/auth/flows/"+id+suffix, body)
}

func mustStep(t *testing.T, s *testStack, id, suffix, body, wantStep string) adapter.FlowResponse {
	t.Helper()
	resp := flowStep(t, s, id, suffix, body)
	expectStatus(t, resp, http.StatusOK)
	flow := decode[adapter.FlowResponse](t, resp)
	if flow.Step != wantStep {
		t.Fatalf("Step = %q, want %q", flow.Step, wantStep)
	}
	return flow
}

func login(t *testing.T, s *testStack) string {
	t.Helper()
	flow := startFlow(t, s, "login")
	mustStep(t, s, flow.ID, "/email", fmt.Sprintf(`{"email":%q}`, testEmail), "password")
	mustStep(t, s, flow.ID, "/password", fmt.Sprintf(`{"password":%q}`, testPassword), "otp")
	done := mustStep(t, s, flow.ID, "/otp", fmt.Sprintf(`{"code":%q}`, testCode), "complete")
	if done.SessionToken == "" {
		t.Fatal("completed login should carry a session token")
	}
	return done.SessionToken
}

func TestLoginFlow(t *testing.T) {
	s := newTestServer(t, false)
	flow := startFlow(t, s, "login")

	if flow.Kind != "login" || flow.Step != "email" {
		t.Fatalf("flow = %+v, want login at email", flow)
	}

	mustStep(t, s, flow.ID, "/email", fmt.Sprintf(`{"email":%q}`, testEmail), "password")
	back := mustStep(t, s, flow.ID, "/email/change", "", "email")
	if back.Email != testEmail {
		t.Errorf("Email = %q, want %q", back.Email, testEmail)
	}

	mustStep(t, s, flow.ID, "/email", fmt.Sprintf(`{"email":%q}`, testEmail), "password")
	otp := mustStep(t, s, flow.ID, "/password", fmt.Sprintf(`{"password":%q}`, testPassword), "otp")
	if otp.OTPResendCooldown != 60 || otp.CanResend || otp.OTPExpiresAt == "" {
		t.Errorf("otp step = %+v, want a fresh cooldown", otp)
	}

	resp := flowStep(t, s, flow.ID, "/otp/resend", "")
	expectStatus(t, resp, http.StatusTooManyRequests)
	resp.Body.Close()

	resp = flowStep(t, s, flow.ID, "/otp", `{"code":"000000"}`)
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	done := mustStep(t, s, flow.ID, "/otp", fmt.Sprintf(`{"code":%q}`, testCode), "complete")
	subject, err := s.issuer.Verify(done.SessionToken)
	if err != nil {
		t.Fatalf("session token does not verify: %v", err)
	}
	if subject != testEmail {
		t.Errorf("subject = %q, want %q", subject, testEmail)
	}
}

func TestLoginFlow_Rejections(t *testing.T) {
	s := newTestServer(t, false)
	flow := startFlow(t, s, "login")

	resp := flowStep(t, s, flow.ID, "/email", `{"email":"not-an-email"}`)
	expectStatus(t, resp, http.StatusUnprocessableEntity)
	resp.Body.Close()

	resp = flowStep(t, s, flow.ID, "/email", `{"email":"stranger@talladmin.io"}`)
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	resp = flowStep(t, s, flow.ID, "/otp", `{"code":"123456"}`)
	expectStatus(t, resp, http.StatusUnprocessableEntity)
	resp.Body.Close()

	mustStep(t, s, flow.ID, "/email", fmt.Sprintf(`{"email":%q}`, testEmail), "password")
	resp = flowStep(t, s, flow.ID, "/password", `{"password":"wrong"}`)
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	resp = doRequest(t, http.MethodGet, s.srv.URL+"/api/v1/auth/flows/"+flow.ID, "")
	expectStatus(t, resp, http.StatusOK)
	if got := decode[adapter.FlowResponse](t, resp); got.Step != "password" {
		t.Errorf("Step = %q, want password", got.Step)
	}
}

func TestRecoveryFlow(t *testing.T) {
	s := newTestServer(t, false)
	flow := startFlow(t, s, "recovery")

	mustStep(t, s, flow.ID, "/email", fmt.Sprintf(`{"email":%q}`, testEmail), "otp")
	mustStep(t, s, flow.ID, "/otp", fmt.Sprintf(`{"code":%q}`, testCode), "reset")

	resp := flowStep(t, s, flow.ID, "/reset", `{"new_password":"a","confirm_password":"b"}`)
	expectStatus(t, resp, http.StatusUnprocessableEntity)
	resp.Body.Close()

	mustStep(t, s, flow.ID, "/reset", `{"new_password":"new secret","confirm_password":"new secret"}`, "complete")

	// The new password now logs in.
	next := startFlow(t, s, "login")
	mustStep(t, s, next.ID, "/email", fmt.Sprintf(`{"email":%q}`, testEmail), "password")
	mustStep(t, s, next.ID, "/password", `{"password":"new secret"}`, "otp")
}

func TestFlow_NotFound(t *testing.T) {
	s := newTestServer(t, false)

	resp := doRequest(t, http.MethodGet, s.srv.URL+"/api/v1/auth/flows/missing", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestSession_ProtectsTenantRoutes(t *testing.T) {
	s := newTestServer(t, true)

	resp := doRequest(t, http.MethodGet, s.srv.URL+"/api/v1/tenants", "")
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	resp = doRequest(t, http.MethodGet, s.srv.URL+"/api/v1/tenants", "", "Authorization", "Bearer forged")
	expectStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()

	bearer := []string{"Authorization", "Bearer " + login(t, s)}
	created := mustCreateTenant(t, s, "Acme", "acme.io", bearer...)

	resp = postAction(t, s, created.ID, "suspend", `{"reason":"billing","confirmed":true,"actor":"someone else"}`, bearer...)
	expectStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = doRequest(t, http.MethodGet, s.srv.URL+"/api/v1/tenants/"+created.ID+"/history", "", bearer...)
	expectStatus(t, resp, http.StatusOK)
	history := decode[[]adapter.StatusChangeResponse](t, resp)
	if len(history) != 1 || history[0].Actor != testEmail {
		t.Errorf("history = %+v, want actor %q from the session", history, testEmail)
	}
}
