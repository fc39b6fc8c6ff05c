package channel

import (
	"context"
	"testing"

	"rentbot/internal/model"
)

func TestKeywordClassifier(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Classification
	}{
		{
			name: "full offer",
			text: "Сдаю комнату на подселение в Алматы, мкр Самал-2.\nИщем девушку.\n70 000 тг в месяц.\nПишите @aida_kz",
			want: Classification{
				IsOffer:         true,
				MonthlyPrice:    70_000,
				PreferredGender: model.PreferGirl,
				Location:        "Сдаю комнату на подселение в Алматы, мкр Самал-2.",
				Contact:         "@aida_kz",
				City:            "алматы",
			},
		},
		{
			name: "boy preference with phone",
			text: "Подселение, нужен парень.\nрайон Сайран\n50000 тенге\n+7 707 123 45 67",
			want: Classification{
				IsOffer:         true,
				MonthlyPrice:    50_000,
				PreferredGender: model.PreferBoy,
				Location:        "район Сайран",
				Contact:         "+7 707 123 45 67",
			},
		},
		{
			name: "both genders",
			text: "Сдается комната, рассмотрим парня или девушку, 60 000 тг",
			want: Classification{
				IsOffer:         true,
				MonthlyPrice:    60_000,
				PreferredGender: model.PreferBoth,
			},
		},
		{
			name: "no gender stated",
			text: "Сдаю комнату в Астане",
			want: Classification{
				IsOffer:         true,
				PreferredGender: model.PreferNone,
				City:            "астана",
			},
		},
		{
			name: "not an offer",
			text: "Ищу комнату в Алматы, бюджет 60 000 тг",
			want: Classification{},
		},
		{
			name: "chatter",
			text: "Всем привет! Как дела?",
			want: Classification{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := KeywordClassifier{}.Classify(context.Background(), tt.text)
			if err != nil {
				t.Fatalf("classify: %v", err)
			}
			if got != tt.want {
				t.Errorf("Classify() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
