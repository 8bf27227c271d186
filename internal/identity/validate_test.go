package identity

import (
	"strings"
	"testing"

	"github.com/hitoshi/bookman/internal/model"
)

func validLocalUser() *model.User {
	return &model.User{
		Email:     "hanako@example.com",
		FirstName: "Hanako",
		LastName:  "Suzuki",
		Provider:  model.ProviderLocal,
		Active:    true,
	}
}

// TestValidate_ValidLocalUser_NoViolations は妥当なlocalユーザーが違反なしで通ることを検証する。
func TestValidate_ValidLocalUser_NoViolations(t *testing.T) {
	n := NewNormalizer()

	violations := n.Validate(validLocalUser(), "secret123")
	if len(violations) != 0 {
		t.Errorf("expected no violations, got %v", violations)
	}
}

// TestValidate_ValidGoogleUser_NoViolations は妥当なgoogleユーザーが違反なしで通ることを検証する。
func TestValidate_ValidGoogleUser_NoViolations(t *testing.T) {
	n := NewNormalizer()

	user := &model.User{
		GoogleID:  "google-1",
		Email:     "taro@example.com",
		FirstName: "Taro",
		LastName:  "Yamada",
		Provider:  model.ProviderGoogle,
		Active:    true,
	}

	violations := n.Validate(user, "")
	if len(violations) != 0 {
		t.Errorf("expected no violations, got %v", violations)
	}
}

// TestValidate_ShortPassword_ReturnsLengthViolation は5文字のパスワードが長さ違反になることを検証する。
func TestValidate_ShortPassword_ReturnsLengthViolation(t *testing.T) {
	n := NewNormalizer()

	violations := n.Validate(validLocalUser(), "12345")
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation, got %v", violations)
	}
	if violations[0] != violationPasswordLength {
		t.Errorf("violation = %q, want %q", violations[0], violationPasswordLength)
	}
}

// TestValidate_LocalUserWithoutPassword_ReturnsMissingViolation はlocalユーザーのパスワード必須を検証する。
func TestValidate_LocalUserWithoutPassword_ReturnsMissingViolation(t *testing.T) {
	n := NewNormalizer()

	violations := n.Validate(validLocalUser(), "")
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation, got %v", violations)
	}
	if violations[0] != violationPasswordMissing {
		t.Errorf("violation = %q, want %q", violations[0], violationPasswordMissing)
	}
}

// TestValidate_StoredLocalUser_ChecksHashOnly はDB由来のlocalユーザーがハッシュの存在のみ検査されることを検証する。
func TestValidate_StoredLocalUser_ChecksHashOnly(t *testing.T) {
	n := NewNormalizer()

	user := validLocalUser()
	user.ID = "user-1"
	user.PasswordHash = "$2a$12$abcdefghijklmnopqrstuv"
	user.FromStore = true

	// 平文パスワードを渡さなくても違反にならない
	if violations := n.Validate(user, ""); len(violations) != 0 {
		t.Errorf("expected no violations for stored user, got %v", violations)
	}

	user.PasswordHash = ""
	violations := n.Validate(user, "")
	if len(violations) != 1 || violations[0] != violationPasswordMissing {
		t.Errorf("expected [%q], got %v", violationPasswordMissing, violations)
	}
}

// TestValidate_GoogleUserWithoutGoogleID_ReturnsViolation はgoogleユーザーの外部ID必須を検証する。
func TestValidate_GoogleUserWithoutGoogleID_ReturnsViolation(t *testing.T) {
	n := NewNormalizer()

	user := &model.User{
		Email:     "taro@example.com",
		FirstName: "Taro",
		LastName:  "Yamada",
		Provider:  model.ProviderGoogle,
	}

	violations := n.Validate(user, "")
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation, got %v", violations)
	}
	if violations[0] != violationGoogleIDMissing {
		t.Errorf("violation = %q, want %q", violations[0], violationGoogleIDMissing)
	}
}

// TestValidate_MultipleViolations_ReturnsAll は違反したルールすべてが列挙されることを検証する。
// 最初の1件で打ち切らない。
func TestValidate_MultipleViolations_ReturnsAll(t *testing.T) {
	n := NewNormalizer()

	user := &model.User{
		Email:     "not-an-email",
		FirstName: "",
		LastName:  strings.Repeat("a", 51),
		Provider:  model.ProviderLocal,
	}

	violations := n.Validate(user, "123")

	want := []string{
		violationEmailFormat,
		violationFirstNameMissing,
		violationLastNameLength,
		violationPasswordLength,
	}
	if len(violations) != len(want) {
		t.Fatalf("expected %d violations, got %d: %v", len(want), len(violations), violations)
	}
	for _, w := range want {
		found := false
		for _, v := range violations {
			if v == w {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing expected violation %q in %v", w, violations)
		}
	}
}

// TestValidate_UnknownProvider_ReturnsViolation は未知のproviderが拒否されることを検証する。
func TestValidate_UnknownProvider_ReturnsViolation(t *testing.T) {
	n := NewNormalizer()

	user := validLocalUser()
	user.Provider = model.Provider("github")

	violations := n.Validate(user, "secret123")
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation, got %v", violations)
	}
	if violations[0] != violationProviderUnknown {
		t.Errorf("violation = %q, want %q", violations[0], violationProviderUnknown)
	}
}

// TestValidate_DisplayNameTooLong_ReturnsViolation は101文字の表示名が拒否されることを検証する。
func TestValidate_DisplayNameTooLong_ReturnsViolation(t *testing.T) {
	n := NewNormalizer()

	user := validLocalUser()
	user.DisplayName = strings.Repeat("x", 101)

	violations := n.Validate(user, "secret123")
	if len(violations) != 1 {
		t.Fatalf("expected 1 violation, got %v", violations)
	}
	if violations[0] != violationDisplayNameLong {
		t.Errorf("violation = %q, want %q", violations[0], violationDisplayNameLong)
	}
}
