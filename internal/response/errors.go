package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"
	ErrInvalidRule    ErrCode = "INVALID_RULE"
	ErrInvalidVersion ErrCode = "INVALID_VERSION_COUNT"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrTemplateNotFound ErrCode = "TEMPLATE_NOT_FOUND"
	ErrSectionNotFound  ErrCode = "SECTION_NOT_FOUND"
	ErrQuestionNotFound ErrCode = "QUESTION_NOT_FOUND"
	ErrConflict         ErrCode = "CONFLICT"

	// ─── Composition ───────────────────────────────────────────────────
	ErrNoSections       ErrCode = "NO_SECTIONS"
	ErrNotInComposition ErrCode = "QUESTION_NOT_IN_COMPOSITION"
	ErrCompositionBusy  ErrCode = "COMPOSITION_SUPERSEDED"
	ErrFetchFailed      ErrCode = "FETCH_FAILED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validasi gagal. Periksa kembali isian Anda."
	case ErrInvalidID:
		return "Format ID tidak valid."
	case ErrInvalidPayload:
		return "Payload permintaan tidak valid."
	case ErrInvalidRule:
		return "Aturan bagian tidak valid."
	case ErrInvalidVersion:
		return "Jumlah versi ujian tidak valid."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Sumber daya tidak ditemukan."
	case ErrTemplateNotFound:
		return "Template ujian tidak ditemukan."
	case ErrSectionNotFound:
		return "Bagian tidak ditemukan pada template ini."
	case ErrQuestionNotFound:
		return "Soal tidak ditemukan."
	case ErrConflict:
		return "Sumber daya sudah ada."

	// ─── Composition ───────────────────────────────────────────────────
	case ErrNoSections:
		return "Template belum memiliki bagian soal."
	case ErrNotInComposition:
		return "Soal tidak termasuk dalam komposisi saat ini."
	case ErrCompositionBusy:
		return "Konfigurasi berubah selama komposisi. Silakan coba lagi."
	case ErrFetchFailed:
		return "Gagal mengambil data soal. Komposisi sebelumnya tetap dipertahankan."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Terlalu banyak permintaan. Silakan coba lagi nanti."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Terjadi kesalahan internal pada server."

	default:
		return "Terjadi kesalahan yang tidak diketahui."
	}
}
